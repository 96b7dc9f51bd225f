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
//        "id": "s1",
//        "type": "persistentValue",
//        "name": "写入温度",
//        "configuration": {
//          "valuesConfig": "cfg",
//          "value": "temperature",
//          "command": "write",
//          "msgProperty": "payload",
//          "collectValues": true,
//          "blockIfEnable": true,
//          "blockIfRule": "eq",
//          "blockIfCompareValue": 0
//        }
//      }
import (
	"errors"
	"fmt"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/components/base"
	"github.com/rulego/pvflow/utils/maps"
	"github.com/rulego/pvflow/value"
)

func init() {
	Registry.Add(&PersistentValueNode{})
}

// PersistentValueNodeConfiguration 节点配置
type PersistentValueNodeConfiguration struct {
	// ValuesConfig 同一规则链中persistentValuesConfig节点ID
	ValuesConfig string
	// Value 引用的值名称
	Value string
	// Command read或者write，默认read
	Command string
	// MsgProperty 读写的消息属性，支持payload.temperature多级属性，默认payload
	MsgProperty string
	// CollectValues 是否收集值
	CollectValues bool
	// CollectValuesMsgProperty 收集值的消息属性，默认collectedValues
	CollectValuesMsgProperty string
	// BlockIfEnable 是否启用阻断
	BlockIfEnable bool
	// BlockIfRule eq：值等于比较值时阻断，neq：不等于时阻断
	BlockIfRule string
	// BlockIfCompareValue 比较值
	BlockIfCompareValue interface{}
	// Storage 覆盖值声明的存储名称
	Storage string
}

// PersistentValueNode 读写持久值
// 读取：从上下文读取值，不存在时使用默认值，写入到msgProperty，通过`Success`链发送
// 写入：把msgProperty的值写入上下文，值发生变化时同时通过`OnChange`链发送一份深拷贝
// 阻断规则匹配时不发送任何消息
// 上下文存储失败时通过`Failure`链发送
type PersistentValueNode struct {
	//节点配置
	Config    PersistentValueNodeConfiguration
	processor *value.Processor
}

// Type 组件类型
func (x *PersistentValueNode) Type() string {
	return "persistentValue"
}

func (x *PersistentValueNode) New() types.Node {
	return &PersistentValueNode{Config: PersistentValueNodeConfiguration{
		Command:                  string(value.CommandRead),
		MsgProperty:              value.DefaultMsgProperty,
		CollectValuesMsgProperty: value.DefaultCollectValuesMsgProperty,
	}}
}

// Init 初始化
func (x *PersistentValueNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.ValuesConfig == "" {
		return errors.New("valuesConfig can not be empty")
	}
	chainCtx := base.NodeUtils.GetChainCtx(configuration)
	if chainCtx == nil {
		return fmt.Errorf("%s must be used in a rule chain", x.Type())
	}
	configNode, ok := chainCtx.GetConfigNode(x.Config.ValuesConfig)
	if !ok {
		return fmt.Errorf("%s: %w", x.Config.ValuesConfig, types.ErrConfigNodeNotFound)
	}
	values, ok := configNode.Instance().(*value.ValuesConfig)
	if !ok || values == nil {
		return fmt.Errorf("%s is not a values config", x.Config.ValuesConfig)
	}
	self := base.NodeUtils.GetSelfDefinition(configuration)
	processor, err := value.NewProcessor(values, value.Settings{
		Value:                    x.Config.Value,
		Command:                  value.Command(x.Config.Command),
		MsgProperty:              x.Config.MsgProperty,
		CollectValues:            x.Config.CollectValues,
		CollectValuesMsgProperty: x.Config.CollectValuesMsgProperty,
		BlockIfEnable:            x.Config.BlockIfEnable,
		BlockIfRule:              x.Config.BlockIfRule,
		BlockIfCompareValue:      x.Config.BlockIfCompareValue,
		Storage:                  x.Config.Storage,
	}, base.NodeUtils.WarnFunc(ruleConfig, self.Id))
	if err != nil {
		return err
	}
	x.processor = processor
	return nil
}

// OnMsg 处理消息
func (x *PersistentValueNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	defer func() {
		if e := recover(); e != nil {
			err := fmt.Errorf("%s panic: %v", x.Type(), e)
			base.NodeUtils.Warn(ctx, "%v", err)
			ctx.TellFailure(msg, err)
		}
	}()
	result, err := x.processor.Handle(x.store(ctx), msg.Properties())
	if err != nil {
		base.NodeUtils.Warn(ctx, "%v", err)
		ctx.TellFailure(msg, err)
		return
	}
	if result.Blocked {
		base.NodeUtils.Debug(ctx, "%s blocked the flow with value %v", x.processor.ContextKey(), result.Value)
		return
	}
	primary := msg.Copy()
	if err := primary.SetProperties(result.Primary); err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	ctx.TellSuccess(primary)
	if result.OnChange != nil {
		changed := msg.Copy()
		if err := changed.SetProperties(result.OnChange); err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		ctx.TellNext(changed, types.OnChange)
	}
}

// store 根据值声明的作用域选择上下文存储
func (x *PersistentValueNode) store(ctx types.RuleContext) types.ContextStore {
	switch x.processor.Declaration().Scope {
	case value.ScopeNode:
		return ctx.NodeContext()
	case value.ScopeFlow:
		return ctx.FlowContext()
	default:
		return ctx.GlobalContext()
	}
}

// Destroy 销毁
func (x *PersistentValueNode) Destroy() {
}
