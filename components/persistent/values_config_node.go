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


package persistent

//规则链节点配置示例：
//{
//        "id": "cfg",
//        "type": "persistentValuesConfig",
//        "name": "值声明",
//        "configuration": {
//          "name": "TestConfig",
//          "values": [{"name": "boolean", "datatype": "bool", "default": true}]
//        }
//      }
import (
	"fmt"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/utils/maps"
	"github.com/rulego/pvflow/value"
)

func init() {
	Registry.Add(&ValuesConfigNode{})
}

// ValuesConfigNodeConfiguration 节点配置
type ValuesConfigNodeConfiguration struct {
	// Name 配置名称，作为上下文key的前缀
	Name string
	// Values 值声明列表
	Values []value.Declaration
}

// ValuesConfigNode 值声明配置节点
// 在规则链加载时先于其他节点初始化，persistentValue节点通过valuesConfig引用它
type ValuesConfigNode struct {
	//节点配置
	Config ValuesConfigNodeConfiguration
	values *value.ValuesConfig
}

var _ types.ConfigNode = (*ValuesConfigNode)(nil)

// Type 组件类型
func (x *ValuesConfigNode) Type() string {
	return "persistentValuesConfig"
}

func (x *ValuesConfigNode) New() types.Node {
	return &ValuesConfigNode{}
}

// Init 初始化
func (x *ValuesConfigNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	values, err := value.NewValuesConfig(x.Config.Name, x.Config.Values)
	if err != nil {
		return fmt.Errorf("%s: %w", x.Type(), err)
	}
	x.values = values
	return nil
}

// Instance 返回*value.ValuesConfig
func (x *ValuesConfigNode) Instance() interface{} {
	return x.values
}

// OnMsg 配置节点不处理消息，直接透传
func (x *ValuesConfigNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *ValuesConfigNode) Destroy() {
}
