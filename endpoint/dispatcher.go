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

// Package endpoint connects the input endpoints (rest, websocket, schedule,
// mqtt) to the rule chains of an engine.Pool.
//
//	dispatcher := endpoint.NewDispatcher(engine.DefaultPool, config)
//	restEndpoint, err := endpoint.Registry.New(rest.Type, dispatcher, config, types.Configuration{"server": ":9090"})
//	err = restEndpoint.Start()
package endpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/rulego/pvflow/api/types"
	endpointApi "github.com/rulego/pvflow/api/types/endpoint"
	"github.com/rulego/pvflow/engine"
)

var _ endpointApi.Dispatcher = (*Dispatcher)(nil)

// Dispatcher routes endpoint messages to the rule engines of a pool and
// fans the branch ends out to the chain listeners.
type Dispatcher struct {
	pool      *engine.Pool
	config    types.Config
	listeners map[string]map[uint64]endpointApi.Listener
	nextId    uint64
	sync.RWMutex
}

// NewDispatcher creates a dispatcher over pool. config supplies the logger
// and the context storage exposed to the endpoints.
func NewDispatcher(pool *engine.Pool, config types.Config) *Dispatcher {
	if pool == nil {
		pool = engine.DefaultPool
	}
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	if config.ContextStorage == nil {
		config.ContextStorage = engine.DefaultContextStorage
	}
	return &Dispatcher{
		pool:      pool,
		config:    config,
		listeners: make(map[string]map[uint64]endpointApi.Listener),
	}
}

// Dispatch 把消息交给规则链处理，返回所有分支的结束消息
func (d *Dispatcher) Dispatch(ctx context.Context, chainId string, msg types.RuleMsg) ([]types.WrapperMsg, error) {
	ruleEngine, ok := d.pool.Get(chainId)
	if !ok {
		return nil, fmt.Errorf("chainId=%s: %w", chainId, types.ErrRuleChainNotFound)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	result := ruleEngine.OnMsgAndCollect(msg, types.WithContext(ctx))
	for _, listener := range d.listenersOf(chainId) {
		for _, item := range result {
			d.notify(listener, chainId, item)
		}
	}
	return result, nil
}

// notify 监听器异常不影响其他监听器
func (d *Dispatcher) notify(listener endpointApi.Listener, chainId string, item types.WrapperMsg) {
	defer func() {
		if e := recover(); e != nil {
			d.config.Logger.Printf("chainId=%s listener err :%v", chainId, e)
		}
	}()
	listener(chainId, item)
}

// Subscribe 订阅规则链的结束消息
func (d *Dispatcher) Subscribe(chainId string, listener endpointApi.Listener) func() {
	d.Lock()
	defer d.Unlock()
	d.nextId++
	id := d.nextId
	if d.listeners[chainId] == nil {
		d.listeners[chainId] = make(map[uint64]endpointApi.Listener)
	}
	d.listeners[chainId][id] = listener
	return func() {
		d.Lock()
		defer d.Unlock()
		delete(d.listeners[chainId], id)
		if len(d.listeners[chainId]) == 0 {
			delete(d.listeners, chainId)
		}
	}
}

func (d *Dispatcher) listenersOf(chainId string) []endpointApi.Listener {
	d.RLock()
	defer d.RUnlock()
	result := make([]endpointApi.Listener, 0, len(d.listeners[chainId]))
	for _, listener := range d.listeners[chainId] {
		result = append(result, listener)
	}
	return result
}

// DSL 规则链定义
func (d *Dispatcher) DSL(chainId string) ([]byte, error) {
	ruleEngine, ok := d.pool.Get(chainId)
	if !ok {
		return nil, fmt.Errorf("chainId=%s: %w", chainId, types.ErrRuleChainNotFound)
	}
	return ruleEngine.DSL(), nil
}

// Reload 重新加载规则链，规则链ID保持不变
func (d *Dispatcher) Reload(chainId string, dsl []byte) error {
	ruleEngine, ok := d.pool.Get(chainId)
	if !ok {
		return fmt.Errorf("chainId=%s: %w", chainId, types.ErrRuleChainNotFound)
	}
	return ruleEngine.ReloadSelf(dsl)
}

// ContextStorage 上下文存储
func (d *Dispatcher) ContextStorage() types.ContextStorage {
	return d.config.ContextStorage
}

// Pool 规则引擎池
func (d *Dispatcher) Pool() *engine.Pool {
	return d.pool
}
