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


package engine

import (
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/utils/str"
)

const (
	defaultNodeIdPrefix = "node"
)

// RuleNodeCtx 节点组件实例定义
type RuleNodeCtx struct {
	//组件实例
	types.Node
	//规则链配置上下文
	ChainCtx *RuleChainCtx
	//组件配置
	SelfDefinition *types.RuleNode
	//规则引擎配置
	config types.Config
}

var _ types.NodeCtx = (*RuleNodeCtx)(nil)

// InitRuleNodeCtx 初始化RuleNodeCtx
// 节点配置中的${global.xx}使用config.Properties替换，并注入$chainCtx和$selfDefinition
func InitRuleNodeCtx(config types.Config, chainCtx *RuleChainCtx, selfDefinition *types.RuleNode) (*RuleNodeCtx, error) {
	node, err := config.ComponentsRegistry.NewNode(selfDefinition.Type)
	if err != nil {
		return nil, err
	}
	if selfDefinition.Configuration == nil {
		selfDefinition.Configuration = make(types.Configuration)
	}
	configuration := processVariables(config, selfDefinition.Configuration)
	if chainCtx != nil {
		configuration[types.NodeConfigurationKeyChainCtx] = chainCtx
	}
	configuration[types.NodeConfigurationKeySelfDefinition] = *selfDefinition
	if err = node.Init(config, configuration); err != nil {
		return nil, err
	}
	return &RuleNodeCtx{
		Node:           node,
		ChainCtx:       chainCtx,
		SelfDefinition: selfDefinition,
		config:         config,
	}, nil
}

func (rn *RuleNodeCtx) Config() types.Config {
	return rn.config
}

func (rn *RuleNodeCtx) IsDebugMode() bool {
	return rn.SelfDefinition.DebugMode
}

func (rn *RuleNodeCtx) GetNodeId() types.RuleNodeId {
	return types.RuleNodeId{Id: rn.SelfDefinition.Id, Type: types.NODE}
}

func (rn *RuleNodeCtx) DSL() []byte {
	v, _ := rn.config.Parser.EncodeRuleNode(rn.SelfDefinition)
	return v
}

// 使用全局配置替换节点占位符配置，例如：${global.propertyKey}
func processVariables(config types.Config, configuration types.Configuration) types.Configuration {
	globalEnv := make(map[string]string)
	for k, v := range config.Properties {
		globalEnv[types.Global+"."+k] = v
	}
	var result = make(types.Configuration, len(configuration)+2)
	for key, value := range configuration {
		result[key] = replaceVariables(value, globalEnv)
	}
	return result
}

// replaceVariables 替换字符串以及嵌套map、数组中的字符串
func replaceVariables(value interface{}, env map[string]string) interface{} {
	switch v := value.(type) {
	case string:
		return str.SprintfDict(v, env)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, item := range v {
			result[k] = replaceVariables(item, env)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = replaceVariables(item, env)
		}
		return result
	default:
		return value
	}
}
