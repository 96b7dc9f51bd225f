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


package test

import (
	"context"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/contextstore"
)

// DefaultChainId chain id used by single node tests
const DefaultChainId = "test_chain"

// NodeTestRuleContext
// 只为测试单节点，临时创建的上下文
// 无法把多个节点组成链式，TellNext等调用直接回调callback
type NodeTestRuleContext struct {
	context  context.Context
	config   types.Config
	callback func(msg types.RuleMsg, relationType string, err error)
	selfId   string
	chainId  string
	chainCtx types.ChainCtx
	onEnd    types.OnEndFunc
	//所有子节点处理完成事件，只执行一次
	onAllNodeCompleted func()
}

// NewRuleContext creates a context with in-memory context stores when config has none.
func NewRuleContext(config types.Config, callback func(msg types.RuleMsg, relationType string, err error)) *NodeTestRuleContext {
	return NewRuleContextFull(config, "", nil, callback)
}

// NewRuleContextFull creates a context for the node selfId of chainCtx.
func NewRuleContextFull(config types.Config, selfId string, chainCtx types.ChainCtx, callback func(msg types.RuleMsg, relationType string, err error)) *NodeTestRuleContext {
	if config.ContextStorage == nil {
		config.ContextStorage = contextstore.NewDefaultManager()
	}
	chainId := DefaultChainId
	if chainCtx != nil {
		chainId = chainCtx.GetNodeId().Id
	}
	return &NodeTestRuleContext{
		context:  context.TODO(),
		config:   config,
		callback: callback,
		selfId:   selfId,
		chainId:  chainId,
		chainCtx: chainCtx,
	}
}

func (ctx *NodeTestRuleContext) TellSuccess(msg types.RuleMsg) {
	ctx.callback(msg, types.Success, nil)
}

func (ctx *NodeTestRuleContext) TellFailure(msg types.RuleMsg, err error) {
	ctx.callback(msg, types.Failure, err)
}

func (ctx *NodeTestRuleContext) TellNext(msg types.RuleMsg, relationTypes ...string) {
	for _, relationType := range relationTypes {
		ctx.callback(msg, relationType, nil)
	}
}

func (ctx *NodeTestRuleContext) NewMsg(msgType string, metaData types.Metadata, data string) types.RuleMsg {
	return types.NewMsg(0, msgType, types.JSON, metaData, data)
}

func (ctx *NodeTestRuleContext) GetSelfId() string {
	return ctx.selfId
}

func (ctx *NodeTestRuleContext) Self() types.NodeCtx {
	if ctx.chainCtx == nil {
		return nil
	}
	nodeCtx, _ := ctx.chainCtx.GetNodeById(types.RuleNodeId{Id: ctx.selfId})
	return nodeCtx
}

func (ctx *NodeTestRuleContext) RuleChain() types.ChainCtx {
	return ctx.chainCtx
}

func (ctx *NodeTestRuleContext) Config() types.Config {
	return ctx.config
}

func (ctx *NodeTestRuleContext) SetEndFunc(onEndFunc types.OnEndFunc) types.RuleContext {
	ctx.onEnd = onEndFunc
	return ctx
}

func (ctx *NodeTestRuleContext) GetEndFunc() types.OnEndFunc {
	return ctx.onEnd
}

func (ctx *NodeTestRuleContext) SetContext(c context.Context) types.RuleContext {
	ctx.context = c
	return ctx
}

func (ctx *NodeTestRuleContext) GetContext() context.Context {
	return ctx.context
}

func (ctx *NodeTestRuleContext) SetOnAllNodeCompleted(onAllNodeCompleted func()) {
	ctx.onAllNodeCompleted = onAllNodeCompleted
}

func (ctx *NodeTestRuleContext) DoOnEnd(msg types.RuleMsg, err error, relationType string) {
	if ctx.onEnd != nil {
		ctx.onEnd(ctx, msg, err, relationType)
	}
}

func (ctx *NodeTestRuleContext) NodeContext() types.ContextStore {
	return ctx.config.ContextStorage.Scope(ctx.context, contextstore.NodeNamespace(ctx.chainId, ctx.selfId))
}

func (ctx *NodeTestRuleContext) FlowContext() types.ContextStore {
	return ctx.config.ContextStorage.Scope(ctx.context, contextstore.FlowNamespace(ctx.chainId))
}

func (ctx *NodeTestRuleContext) GlobalContext() types.ContextStore {
	return ctx.config.ContextStorage.Scope(ctx.context, contextstore.GlobalNamespace)
}
