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

package types

// RuleChain 规则链定义
type RuleChain struct {
	//规则链基础信息定义
	RuleChain RuleChainBaseInfo `json:"ruleChain"`
	//包含了规则链中节点和连接的信息
	Metadata RuleMetadata `json:"metadata"`
}

// RuleChainBaseInfo 规则链基础信息定义
type RuleChainBaseInfo struct {
	//规则链ID
	ID string `json:"id"`
	//Name 规则链的名称
	Name string `json:"name"`
	//表示这个规则链是否处于调试模式。优先使用子节点的DebugMode配置
	DebugMode bool `json:"debugMode"`
	//Root 表示这个规则链是根规则链还是子规则链。(只做标记使用)
	Root bool `json:"root"`
	//Disabled 禁用的规则链不会被加载
	Disabled bool `json:"disabled"`
	//Configuration 规则链配置信息
	Configuration Configuration `json:"configuration,omitempty"`
	//扩展字段
	AdditionalInfo map[string]string `json:"additionalInfo,omitempty"`
}

// RuleMetadata 规则链元数据定义，包含了规则链中节点和连接的信息
type RuleMetadata struct {
	//数据流转的第一个节点，默认:0
	FirstNodeIndex int `json:"firstNodeIndex"`
	//节点组件定义
	Nodes []*RuleNode `json:"nodes"`
	//连接定义
	Connections []NodeConnection `json:"connections"`
}

// RuleNode 规则链节点信息定义
type RuleNode struct {
	//节点的唯一标识符
	Id string `json:"id"`
	//节点的类型，应该与注册的组件类型之一匹配
	Type string `json:"type"`
	//节点的名称
	Name string `json:"name"`
	//表示这个节点是否处于调试模式。如果为真，当节点处理消息时，会触发调试回调函数。
	DebugMode bool `json:"debugMode"`
	//节点的配置参数，具体内容取决于节点类型
	Configuration Configuration `json:"configuration"`
}

// NodeConnection 规则链节点连接定义
type NodeConnection struct {
	//连接的源节点的id
	FromId string `json:"fromId"`
	//连接的目标节点的id
	ToId string `json:"toId"`
	//连接的类型，例如：Success、Failure、True、False、OnChange
	Type string `json:"type"`
}
