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

// Package endpoint defines the input endpoint contracts. An endpoint turns
// data from an external source (http request, websocket frame, cron tick,
// mqtt publish) into a RuleMsg and hands it to a Dispatcher.
package endpoint

import (
	"context"

	"github.com/rulego/pvflow/api/types"
)

// 端点事件
const (
	// EventConnect 客户端连接，参数：连接请求
	EventConnect = "Connect"
	// EventDisconnect 客户端断开，参数：连接请求
	EventDisconnect = "Disconnect"
	// EventInitServer 服务初始化完成，参数：端点实例
	EventInitServer = "InitServer"
	// EventCompletedServer 服务结束，参数：错误
	EventCompletedServer = "CompletedServer"
)

// OnEvent 端点事件监听函数
type OnEvent func(eventName string, params ...interface{})

// Listener receives every branch end message of a rule chain.
type Listener func(chainId string, result types.WrapperMsg)

// Dispatcher routes endpoint messages to rule chains.
type Dispatcher interface {
	// Dispatch runs msg through the rule chain chainId and returns every
	// branch end. The rule chain must exist.
	Dispatch(ctx context.Context, chainId string, msg types.RuleMsg) ([]types.WrapperMsg, error)
	// Subscribe registers a listener for the branch ends of chainId.
	// The returned function removes the listener.
	Subscribe(chainId string, listener Listener) (unsubscribe func())
	// ContextStorage the storage behind the node, flow and global contexts
	ContextStorage() types.ContextStorage
	// DSL returns the current definition of the rule chain chainId.
	DSL(chainId string) ([]byte, error)
	// Reload replaces the definition of the rule chain chainId. The old
	// chain keeps running when the new definition fails to initialize.
	Reload(chainId string, dsl []byte) error
}

// Endpoint 输入端点
type Endpoint interface {
	// New 创建一个新实例
	New() Endpoint
	// Type 端点类型
	Type() string
	// Id 端点实例ID
	Id() string
	// Init 初始化，configuration使用maps.Map2Struct解析
	Init(dispatcher Dispatcher, ruleConfig types.Config, configuration types.Configuration) error
	// SetOnEvent 设置事件监听
	SetOnEvent(onEvent OnEvent)
	// Start 启动服务，不阻塞
	Start() error
	// Destroy 停止服务并释放资源
	Destroy()
}
