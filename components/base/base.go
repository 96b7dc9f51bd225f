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


// Package base provides helpers shared by the rule engine components.
package base

import (
	"encoding/json"
	"fmt"

	"github.com/rulego/pvflow/api/types"
)

var NodeUtils = &nodeUtils{}

type nodeUtils struct {
}

// GetChainCtx 获取节点所在的规则链上下文，节点单独初始化时返回nil
func (n *nodeUtils) GetChainCtx(configuration types.Configuration) types.ChainCtx {
	if v, ok := configuration[types.NodeConfigurationKeyChainCtx]; ok {
		if chainCtx, ok := v.(types.ChainCtx); ok {
			return chainCtx
		}
	}
	return nil
}

// GetSelfDefinition 获取节点定义
func (n *nodeUtils) GetSelfDefinition(configuration types.Configuration) types.RuleNode {
	if v, ok := configuration[types.NodeConfigurationKeySelfDefinition]; ok {
		if ruleNode, ok := v.(types.RuleNode); ok {
			return ruleNode
		}
	}
	return types.RuleNode{}
}

// GetEnv 获取表达式和脚本可以访问的变量：msg、metadata、msgType、dataType、id、ts
func (n *nodeUtils) GetEnv(_ types.RuleContext, msg types.RuleMsg) map[string]interface{} {
	return map[string]interface{}{
		types.MsgKey:      n.PrepareJsData(msg),
		types.MetadataKey: map[string]string(msg.Metadata.Copy()),
		types.MsgTypeKey:  msg.Type,
		types.DataTypeKey: string(msg.DataType),
		types.IdKey:       msg.Id,
		types.TsKey:       msg.Ts,
	}
}

// PrepareJsData JSON类型的消息解析为map或者数组，其他类型使用原始字符串
func (n *nodeUtils) PrepareJsData(msg types.RuleMsg) interface{} {
	if msg.DataType == types.JSON {
		var data interface{}
		if err := json.Unmarshal([]byte(msg.Data), &data); err == nil {
			return data
		}
	}
	return msg.Data
}

// Warn 输出组件告警日志，日志实现支持级别时使用Warnf
func (n *nodeUtils) Warn(ctx types.RuleContext, format string, args ...interface{}) {
	warn(ctx.Config().Logger, ctx.GetSelfId(), format, args...)
}

// WarnFunc 返回绑定到节点ID的告警函数，用于组件初始化后脱离RuleContext输出告警
func (n *nodeUtils) WarnFunc(ruleConfig types.Config, nodeId string) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		warn(ruleConfig.Logger, nodeId, format, args...)
	}
}

func warn(logger types.Logger, nodeId string, format string, args ...interface{}) {
	if logger == nil {
		return
	}
	text := fmt.Sprintf(format, args...)
	if nodeId != "" {
		text = "[" + nodeId + "] " + text
	}
	if leveled, ok := logger.(types.LevelLogger); ok {
		leveled.Warnf("%s", text)
	} else {
		logger.Printf("WARN %s", text)
	}
}

// Debug 输出组件调试日志，日志实现不支持级别时忽略
func (n *nodeUtils) Debug(ctx types.RuleContext, format string, args ...interface{}) {
	if leveled, ok := ctx.Config().Logger.(types.LevelLogger); ok {
		leveled.Debugf(format, args...)
	}
}
