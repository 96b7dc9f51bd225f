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

// Package types defines the component, message, context and configuration
// contracts shared by the rule engine, its components and its endpoints.
package types

import (
	"context"
	"sync"
)

// 关系 节点与节点连接的关系，以下是常用的关系，可以自定义
// relation types
const (
	Success = "Success"
	Failure = "Failure"
	True    = "True"
	False   = "False"
	// OnChange 持久值节点写入的值发生变化时使用的关系
	OnChange = "OnChange"
)

// flow direction type
// 流向 消息流入、流出节点方向
const (
	In  = "IN"
	Out = "OUT"
)

// OnEndFunc 规则链分支执行完函数
type OnEndFunc = func(ctx RuleContext, msg RuleMsg, err error, relationType string)

// Configuration 组件配置类型
type Configuration map[string]interface{}

// ComponentType 组件类型：规则节点或者子规则链
type ComponentType int

const (
	NODE ComponentType = iota
	CHAIN
)

// ComponentRegistry 节点组件注册器
type ComponentRegistry interface {
	//Register 注册组件，如果`node.Type()`已经存在则返回一个`已存在`错误
	Register(node Node) error
	//Unregister 删除组件
	Unregister(componentType string) error
	//NewNode 通过nodeType创建一个新的node实例
	NewNode(nodeType string) (Node, error)
	//GetComponents 获取所有注册组件列表
	GetComponents() map[string]Node
}

// Node 规则引擎节点组件接口
// 把业务封或者通用逻辑装成组件，然后通过规则链配置方式调用该组件
type Node interface {
	//New 创建一个组件新实例
	//每个规则链里的规则节点都会创建一个新的实例，数据是独立的
	New() Node
	//Type 组件类型，类型不能重复。
	Type() string
	//Init 组件初始化，一般做一些组件参数配置或者客户端初始化操作
	//规则链里的规则节点初始化会调用一次
	Init(ruleConfig Config, configuration Configuration) error
	//OnMsg 处理消息，每条流入组件的数据会经过该函数处理
	//执行完逻辑后，调用ctx.TellSuccess/ctx.TellFailure/ctx.TellNext通知下一个节点
	OnMsg(ctx RuleContext, msg RuleMsg)
	//Destroy 销毁，做一些资源释放操作
	Destroy()
}

// ConfigNode 配置节点
// 配置节点不参与消息路由，只为同一规则链中的其他节点提供共享配置。
// 规则链加载时，配置节点先于其他节点初始化。
type ConfigNode interface {
	Node
	//Instance 返回共享的配置实例
	Instance() interface{}
}

// NodeCtx 规则节点实例化上下文
type NodeCtx interface {
	Node
	Config() Config
	//IsDebugMode 该节点是否是调试模式
	//True:消息流入和流出该节点，会调用config.OnDebug回调函数，否则不会
	IsDebugMode() bool
	//GetNodeId 获取组件ID
	GetNodeId() RuleNodeId
	//DSL 返回该节点配置DSL
	DSL() []byte
}

// ChainCtx 规则链实例化上下文
type ChainCtx interface {
	NodeCtx
	//Definition 规则链定义
	Definition() *RuleChain
	//GetNodeById 获取规则链中指定ID的节点
	GetNodeById(nodeId RuleNodeId) (NodeCtx, bool)
	//GetConfigNode 获取规则链中指定ID的配置节点
	GetConfigNode(id string) (ConfigNode, bool)
}

// RuleContext 规则引擎消息处理上下文接口
// 处理把消息流转到下一个或者多个节点逻辑
// 另外处理节点OnDebug和OnEnd回调逻辑
type RuleContext interface {
	//TellSuccess 通知规则引擎处理当前消息处理成功，并把消息通过`Success`关系发送到下一个节点
	TellSuccess(msg RuleMsg)
	//TellFailure 通知规则引擎处理当前消息处理失败，并把消息通过`Failure`关系发送到下一个节点
	TellFailure(msg RuleMsg, err error)
	//TellNext 使用指定的relationTypes，把消息发送到下一个节点
	TellNext(msg RuleMsg, relationTypes ...string)
	//NewMsg 创建新的消息实例
	NewMsg(msgType string, metaData Metadata, data string) RuleMsg
	//GetSelfId 获取当前节点ID
	GetSelfId() string
	//Self 获取当前节点实例
	Self() NodeCtx
	//RuleChain 获取当前节点所在的规则链实例
	RuleChain() ChainCtx
	//Config 获取规则引擎配置
	Config() Config
	//SetEndFunc 设置当前消息处理结束回调函数
	SetEndFunc(f OnEndFunc) RuleContext
	//GetEndFunc 获取当前消息处理结束回调函数
	GetEndFunc() OnEndFunc
	//SetContext 设置用于不同组件实例共享信号量或者数据的上下文
	SetContext(c context.Context) RuleContext
	//GetContext 获取用于不同组件实例共享信号量或者数据的上下文
	GetContext() context.Context
	//SetOnAllNodeCompleted 设置所有节点执行完回调
	SetOnAllNodeCompleted(onAllNodeCompleted func())
	//DoOnEnd 触发 OnEnd 回调函数
	DoOnEnd(msg RuleMsg, err error, relationType string)
	//NodeContext 当前节点私有的上下文存储
	NodeContext() ContextStore
	//FlowContext 当前规则链共享的上下文存储
	FlowContext() ContextStore
	//GlobalContext 所有规则链共享的上下文存储
	GlobalContext() ContextStore
}

// RuleContextOption 修改RuleContext选项的函数
type RuleContextOption func(RuleContext)

// WithOnEnd 规则链分支链执行完回调函数
// 注意：如果规则链有多个结束点，回调函数则会执行多次
func WithOnEnd(endFunc func(ctx RuleContext, msg RuleMsg, err error, relationType string)) RuleContextOption {
	return func(rc RuleContext) {
		rc.SetEndFunc(endFunc)
	}
}

// WithContext 上下文
// 用于超时取消
func WithContext(c context.Context) RuleContextOption {
	return func(rc RuleContext) {
		rc.SetContext(c)
	}
}

// WithOnAllNodeCompleted 规则链执行完回调函数
func WithOnAllNodeCompleted(onAllNodeCompleted func()) RuleContextOption {
	return func(rc RuleContext) {
		rc.SetOnAllNodeCompleted(onAllNodeCompleted)
	}
}

// Parser 规则链定义文件DSL解析器
type Parser interface {
	// DecodeRuleChain 从描述文件解析规则链结构体
	DecodeRuleChain(dsl []byte) (RuleChain, error)
	// DecodeRuleNode 从描述文件解析规则节点结构体
	DecodeRuleNode(dsl []byte) (RuleNode, error)
	//EncodeRuleChain 把规则链结构体转换成描述文件
	EncodeRuleChain(def interface{}) ([]byte, error)
	//EncodeRuleNode 把规则节点结构体转换成描述文件
	EncodeRuleNode(def interface{}) ([]byte, error)
}

// EmptyRuleNodeId 空节点ID
var EmptyRuleNodeId = RuleNodeId{}

// RuleNodeId 组件ID类型定义
type RuleNodeId struct {
	//节点ID
	Id string
	//节点类型，节点/子规则链
	Type ComponentType
}

// RuleNodeRelation 节点与节点之间关系
type RuleNodeRelation struct {
	//入组件ID
	InId RuleNodeId
	//出组件ID
	OutId RuleNodeId
	//关系 如：True、False、Success、Failure、OnChange 或者其他自定义关系
	RelationType string
}

// SafeComponentSlice 安全的组件列表切片
type SafeComponentSlice struct {
	//组件列表
	components []Node
	sync.Mutex
}

// Add 线程安全地添加元素
func (p *SafeComponentSlice) Add(nodes ...Node) {
	p.Lock()
	defer p.Unlock()
	p.components = append(p.components, nodes...)
}

// Components 获取组件列表
func (p *SafeComponentSlice) Components() []Node {
	p.Lock()
	defer p.Unlock()
	return append([]Node(nil), p.components...)
}
