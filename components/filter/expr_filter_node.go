/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package filter

//规则链节点配置示例：
//{
//        "id": "s1",
//        "type": "exprFilter",
//        "name": "温度告警",
//        "configuration": {
//          "expr": "msg.payload > 50 && metadata.deviceId != ''"
//        }
//      }
import (
	"errors"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/components/base"
	"github.com/rulego/pvflow/utils/maps"
)

func init() {
	Registry.Add(&ExprFilterNode{})
}

// ExprFilterNodeConfiguration 节点配置
type ExprFilterNodeConfiguration struct {
	// Expr 返回bool的expr表达式，可用变量见 base.NodeUtils.GetEnv
	Expr string
}

// ExprFilterNode 按expr表达式结果路由消息：true走True，false或者非bool结果走False，
// 运行错误走Failure。persistentValue节点写入的payload可以通过msg.payload访问
type ExprFilterNode struct {
	Config  ExprFilterNodeConfiguration
	program *vm.Program
}

// Type 组件类型
func (x *ExprFilterNode) Type() string {
	return "exprFilter"
}

func (x *ExprFilterNode) New() types.Node {
	return &ExprFilterNode{}
}

// Init 编译表达式，未定义的变量按nil处理
func (x *ExprFilterNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if strings.TrimSpace(x.Config.Expr) == "" {
		return errors.New("expr can not be empty")
	}
	program, err := expr.Compile(x.Config.Expr, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return err
	}
	x.program = program
	return nil
}

// OnMsg 处理消息
func (x *ExprFilterNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	out, err := vm.Run(x.program, base.NodeUtils.GetEnv(ctx, msg))
	if err != nil {
		base.NodeUtils.Warn(ctx, "Expression %q evaluation failed: %v", x.Config.Expr, err)
		ctx.TellFailure(msg, err)
		return
	}
	relation := types.False
	if matched, _ := out.(bool); matched {
		relation = types.True
	}
	ctx.TellNext(msg, relation)
}

// Destroy 销毁
func (x *ExprFilterNode) Destroy() {
}
