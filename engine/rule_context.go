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
	"context"
	"fmt"
	"sync"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/contextstore"
)

// DefaultRuleContext 默认规则引擎消息处理上下文
// 消息在规则链中同步流转：TellNext在返回前执行完所有子节点
type DefaultRuleContext struct {
	//用于不同组件共享信号量和数据的上下文
	context context.Context
	//规则引擎配置
	config types.Config
	//规则链上下文
	ruleChainCtx *RuleChainCtx
	//上一个节点，第一个节点为nil
	from types.NodeCtx
	//当前节点
	self types.NodeCtx
	//分支结束回调
	onEnd types.OnEndFunc
	//所有节点执行完回调，只有根上下文持有
	onAllNodeCompleted func()
	once               *sync.Once
}

var _ types.RuleContext = (*DefaultRuleContext)(nil)

// NewRuleContext 创建一个默认规则引擎消息处理上下文实例
func NewRuleContext(context context.Context, config types.Config, ruleChainCtx *RuleChainCtx, from types.NodeCtx, self types.NodeCtx, onEnd types.OnEndFunc) *DefaultRuleContext {
	return &DefaultRuleContext{
		context:      context,
		config:       config,
		ruleChainCtx: ruleChainCtx,
		from:         from,
		self:         self,
		onEnd:        onEnd,
		once:         &sync.Once{},
	}
}

// NewNextNodeRuleContext creates a new instance of RuleContext for the next node in the rule engine.
func (ctx *DefaultRuleContext) NewNextNodeRuleContext(nextNode types.NodeCtx) *DefaultRuleContext {
	return &DefaultRuleContext{
		context:      ctx.GetContext(),
		config:       ctx.config,
		ruleChainCtx: ctx.ruleChainCtx,
		from:         ctx.self,
		self:         nextNode,
		onEnd:        ctx.onEnd,
		once:         ctx.once,
	}
}

func (ctx *DefaultRuleContext) TellSuccess(msg types.RuleMsg) {
	ctx.tell(msg, nil, types.Success)
}

func (ctx *DefaultRuleContext) TellFailure(msg types.RuleMsg, err error) {
	ctx.tell(msg, err, types.Failure)
}

func (ctx *DefaultRuleContext) TellNext(msg types.RuleMsg, relationTypes ...string) {
	ctx.tell(msg, nil, relationTypes...)
}

func (ctx *DefaultRuleContext) NewMsg(msgType string, metaData types.Metadata, data string) types.RuleMsg {
	return types.NewMsg(0, msgType, types.JSON, metaData, data)
}

func (ctx *DefaultRuleContext) GetSelfId() string {
	if ctx.self == nil {
		return ""
	}
	return ctx.self.GetNodeId().Id
}

func (ctx *DefaultRuleContext) Self() types.NodeCtx {
	return ctx.self
}

// From 上一个节点
func (ctx *DefaultRuleContext) From() types.NodeCtx {
	return ctx.from
}

func (ctx *DefaultRuleContext) RuleChain() types.ChainCtx {
	return ctx.ruleChainCtx
}

func (ctx *DefaultRuleContext) Config() types.Config {
	return ctx.config
}

func (ctx *DefaultRuleContext) SetEndFunc(onEndFunc types.OnEndFunc) types.RuleContext {
	ctx.onEnd = onEndFunc
	return ctx
}

func (ctx *DefaultRuleContext) GetEndFunc() types.OnEndFunc {
	return ctx.onEnd
}

func (ctx *DefaultRuleContext) SetContext(c context.Context) types.RuleContext {
	ctx.context = c
	return ctx
}

func (ctx *DefaultRuleContext) GetContext() context.Context {
	if ctx.context == nil {
		return context.Background()
	}
	return ctx.context
}

func (ctx *DefaultRuleContext) SetOnAllNodeCompleted(onAllNodeCompleted func()) {
	ctx.onAllNodeCompleted = onAllNodeCompleted
}

// DoOnEnd 结束规则链分支执行，触发 OnEnd 回调函数
func (ctx *DefaultRuleContext) DoOnEnd(msg types.RuleMsg, err error, relationType string) {
	if ctx.onEnd != nil {
		ctx.onEnd(ctx, msg.Copy(), err, relationType)
	}
}

// NodeContext 当前节点私有的上下文存储
func (ctx *DefaultRuleContext) NodeContext() types.ContextStore {
	return ctx.config.ContextStorage.Scope(ctx.GetContext(), contextstore.NodeNamespace(ctx.chainId(), ctx.GetSelfId()))
}

// FlowContext 当前规则链共享的上下文存储
func (ctx *DefaultRuleContext) FlowContext() types.ContextStore {
	return ctx.config.ContextStorage.Scope(ctx.GetContext(), contextstore.FlowNamespace(ctx.chainId()))
}

// GlobalContext 所有规则链共享的上下文存储
func (ctx *DefaultRuleContext) GlobalContext() types.ContextStore {
	return ctx.config.ContextStorage.Scope(ctx.GetContext(), contextstore.GlobalNamespace)
}

func (ctx *DefaultRuleContext) chainId() string {
	if ctx.ruleChainCtx == nil {
		return ""
	}
	return ctx.ruleChainCtx.Id.Id
}

// OnDebug 节点开启调试模式时调用config.OnDebug
func (ctx *DefaultRuleContext) OnDebug(flowType string, node types.NodeCtx, msg types.RuleMsg, relationType string, err error) {
	if ctx.config.OnDebug != nil && node != nil && node.IsDebugMode() {
		ctx.config.OnDebug(ctx.chainId(), flowType, node.GetNodeId().Id, msg.Copy(), relationType, err)
	}
}

// doOnAllNodeCompleted 所有节点执行完回调，只执行一次
func (ctx *DefaultRuleContext) doOnAllNodeCompleted() {
	if ctx.onAllNodeCompleted != nil {
		ctx.once.Do(ctx.onAllNodeCompleted)
	}
}

// getNextNodes 获取当前节点指定关系的子节点
func (ctx *DefaultRuleContext) getNextNodes(relationType string) ([]types.NodeCtx, bool) {
	if ctx.ruleChainCtx == nil || ctx.self == nil {
		return nil, false
	}
	return ctx.ruleChainCtx.GetNextNodes(ctx.self.GetNodeId(), relationType)
}

// tell 通知执行子节点，找不到子节点则执行结束回调
func (ctx *DefaultRuleContext) tell(msg types.RuleMsg, err error, relationTypes ...string) {
	if len(relationTypes) == 0 {
		ctx.OnDebug(types.Out, ctx.self, msg, "", err)
		ctx.DoOnEnd(msg, err, "")
		return
	}
	for _, relationType := range relationTypes {
		ctx.OnDebug(types.Out, ctx.self, msg, relationType, err)
		if nodes, ok := ctx.getNextNodes(relationType); ok {
			for _, item := range nodes {
				//为每个子节点创建独立的消息副本
				ctx.tellNext(msg.Copy(), item, relationType)
			}
		} else {
			ctx.DoOnEnd(msg, err, relationType)
		}
	}
}

// tellNext 执行下一个节点，节点异常通过结束回调返回
func (ctx *DefaultRuleContext) tellNext(msg types.RuleMsg, nextNode types.NodeCtx, relationType string) {
	nextCtx := ctx.NewNextNodeRuleContext(nextNode)
	defer func() {
		//捕捉异常
		if e := recover(); e != nil {
			err := fmt.Errorf("node %s panic: %v", nextNode.GetNodeId().Id, e)
			ctx.config.Logger.Printf("%v", err)
			nextCtx.DoOnEnd(msg, err, types.Failure)
		}
	}()
	nextCtx.OnDebug(types.In, nextNode, msg, relationType, nil)
	nextNode.OnMsg(nextCtx, msg)
}
