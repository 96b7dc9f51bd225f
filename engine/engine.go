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


// Package engine loads rule chain DSL, initializes the node components and
// routes messages between them.
//
// Key Components:
// 关键组件：
//   - RuleEngine: one loaded rule chain, entry point for messages
//     RuleEngine：一条已加载的规则链，消息入口
//   - RuleChainCtx: nodes and relations of a rule chain
//     RuleChainCtx：规则链的节点和连接关系
//   - DefaultRuleContext: routes a message from one node to the next
//     DefaultRuleContext：把消息从一个节点路由到下一个节点
//   - RuleNodeCtx: wrapper of a node component instance
//     RuleNodeCtx：节点组件实例的包装
//   - Pool: rule engines by id
//     Pool：按ID管理规则引擎
//
// Messages are processed synchronously: OnMsg returns after every branch of
// the chain ended.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/contextstore"
)

// DefaultContextStorage is shared by the rule engines created without a
// context storage, so their global context is shared too.
var DefaultContextStorage types.ContextStorage = contextstore.NewDefaultManager()

// RuleEngineOption 修改RuleEngine选项的函数
type RuleEngineOption func(*RuleEngine) error

// WithConfig is an option that sets the Config of the RuleEngine.
func WithConfig(config types.Config) RuleEngineOption {
	return func(re *RuleEngine) error {
		re.Config = config
		return nil
	}
}

// RuleEngine 规则引擎
// 每个规则引擎实例只有一个根规则链
type RuleEngine struct {
	//规则引擎实例标识
	id string
	//配置
	Config types.Config
	//根规则链
	rootRuleChainCtx *RuleChainCtx
	//OnUpdated 规则链重新加载后回调
	OnUpdated func(chainId string, dsl []byte)
	sync.RWMutex
}

// NewRuleEngine 创建一个新的RuleEngine并加载规则链
// id为空时使用规则链定义的ruleChain.id
func NewRuleEngine(id string, def []byte, opts ...RuleEngineOption) (*RuleEngine, error) {
	if len(def) == 0 {
		return nil, types.ErrEngineDslEmpty
	}
	ruleEngine := &RuleEngine{
		id:     id,
		Config: NewConfig(),
	}
	for _, opt := range opts {
		if err := opt(ruleEngine); err != nil {
			return nil, err
		}
	}
	ruleEngine.Config = fillConfig(ruleEngine.Config)
	if err := ruleEngine.ReloadSelf(def); err != nil {
		return nil, err
	}
	return ruleEngine, nil
}

// Id returns the unique identifier of the rule engine instance.
func (e *RuleEngine) Id() string {
	e.RLock()
	defer e.RUnlock()
	return e.id
}

// ReloadSelf 使用新的DSL重新加载规则链
// 新规则链初始化成功后才替换并销毁旧规则链
func (e *RuleEngine) ReloadSelf(def []byte) error {
	if len(def) == 0 {
		return types.ErrEngineDslEmpty
	}
	ruleChainDef, err := e.Config.Parser.DecodeRuleChain(def)
	if err != nil {
		return err
	}
	e.Lock()
	if e.id != "" {
		ruleChainDef.RuleChain.ID = e.id
	} else {
		e.id = ruleChainDef.RuleChain.ID
	}
	e.Unlock()
	if ruleChainDef.RuleChain.ID == "" {
		return fmt.Errorf("rule chain id can not be empty")
	}
	if len(ruleChainDef.Metadata.Nodes) == 0 {
		return types.ErrRuleChainHasNoNodes
	}
	ruleChainCtx, err := InitRuleChainCtx(e.Config, &ruleChainDef)
	if err != nil {
		return err
	}
	e.Lock()
	old := e.rootRuleChainCtx
	e.rootRuleChainCtx = ruleChainCtx
	e.Unlock()
	if old != nil {
		old.Destroy()
		if e.OnUpdated != nil {
			e.OnUpdated(ruleChainCtx.Id.Id, def)
		}
	}
	return nil
}

// Reload 使用当前DSL重新加载规则链
func (e *RuleEngine) Reload() error {
	return e.ReloadSelf(e.DSL())
}

// DSL 获取规则链DSL
func (e *RuleEngine) DSL() []byte {
	if chain := e.Chain(); chain != nil {
		return chain.DSL()
	}
	return nil
}

// Definition 获取规则链定义
func (e *RuleEngine) Definition() types.RuleChain {
	if chain := e.Chain(); chain != nil {
		return *chain.Definition()
	}
	return types.RuleChain{}
}

// Chain 获取根规则链
func (e *RuleEngine) Chain() *RuleChainCtx {
	e.RLock()
	defer e.RUnlock()
	return e.rootRuleChainCtx
}

// Initialized 是否已经初始化
func (e *RuleEngine) Initialized() bool {
	return e.Chain() != nil
}

// Stop 销毁规则链所有节点
func (e *RuleEngine) Stop() {
	e.Lock()
	chain := e.rootRuleChainCtx
	e.rootRuleChainCtx = nil
	e.Unlock()
	if chain != nil {
		chain.Destroy()
	}
}

// OnMsg 把消息交给规则链第一个节点处理，所有分支执行结束后返回
// 通过types.WithOnEnd获取每个分支的结束消息
func (e *RuleEngine) OnMsg(msg types.RuleMsg, opts ...types.RuleContextOption) {
	chain := e.Chain()
	rootCtx := NewRuleContext(context.Background(), e.Config, chain, nil, nil, nil)
	for _, opt := range opts {
		opt(rootCtx)
	}
	defer rootCtx.doOnAllNodeCompleted()
	if chain == nil {
		rootCtx.DoOnEnd(msg, types.ErrEngineNotInitialized, "")
		return
	}
	if firstNode, ok := chain.GetFirstNode(); ok {
		rootCtx.tellNext(msg, firstNode, "")
	} else {
		rootCtx.DoOnEnd(msg, types.ErrRuleChainHasNoNodes, "")
	}
}

// OnMsgAndCollect 处理消息并返回所有分支的结束消息
func (e *RuleEngine) OnMsgAndCollect(msg types.RuleMsg, opts ...types.RuleContextOption) []types.WrapperMsg {
	var mu sync.Mutex
	var result []types.WrapperMsg
	opts = append(opts, types.WithOnEnd(func(ctx types.RuleContext, msg types.RuleMsg, err error, relationType string) {
		wrapper := types.WrapperMsg{Msg: msg, RelationType: relationType, NodeId: ctx.GetSelfId()}
		if err != nil {
			wrapper.Err = err.Error()
		}
		mu.Lock()
		result = append(result, wrapper)
		mu.Unlock()
	}))
	e.OnMsg(msg, opts...)
	mu.Lock()
	defer mu.Unlock()
	return result
}

// NewConfig creates a new Config with the default parser, component
// registry and context storage, and applies the provided options.
func NewConfig(opts ...types.Option) types.Config {
	return fillConfig(types.NewConfig(opts...))
}

func fillConfig(c types.Config) types.Config {
	if c.Parser == nil {
		c.Parser = &JsonParser{}
	}
	if c.ComponentsRegistry == nil {
		c.ComponentsRegistry = Registry
	}
	if c.ContextStorage == nil {
		c.ContextStorage = DefaultContextStorage
	}
	if c.Logger == nil {
		c.Logger = types.DefaultLogger()
	}
	if c.Properties == nil {
		c.Properties = types.NewMetadata()
	}
	return c
}
