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

// Package pvflow runs rule chains whose nodes read, write and gate typed
// values kept in node, flow or global context stores.
//
// # Usage
//
// A rule chain declares the values once in a persistentValuesConfig node and
// references them from persistentValue nodes:
//
//	var ruleFile = `
//	{
//	  "ruleChain": {"id": "sensors"},
//	  "metadata": {
//	    "nodes": [
//	      {
//	        "id": "s1",
//	        "type": "persistentValue",
//	        "configuration": {"valuesConfig": "cfg", "value": "temperature", "command": "write"}
//	      },
//	      {
//	        "id": "s2",
//	        "type": "exprFilter",
//	        "configuration": {"expr": "msg.payload > 30"}
//	      },
//	      {
//	        "id": "cfg",
//	        "type": "persistentValuesConfig",
//	        "configuration": {
//	          "name": "Sensors",
//	          "values": [{"name": "temperature", "datatype": "num", "default": 0, "scope": "flow"}]
//	        }
//	      }
//	    ],
//	    "connections": [
//	      {"fromId": "s1", "toId": "s2", "type": "OnChange"}
//	    ]
//	  }
//	}
//	`
//
// Create Rule Engine Instance
//
//	ruleEngine, err := pvflow.New("sensors", []byte(ruleFile))
//
// Processing Message
//
//	msg := types.NewMsg(0, "TELEMETRY", types.JSON, types.NewMetadata(), `{"payload":35}`)
//	ruleEngine.OnMsg(msg, types.WithOnEnd(func(ctx types.RuleContext, msg types.RuleMsg, err error, relationType string) {
//	}))
//
// Load All Rule Chain
//
//	err := pvflow.Load("./rules")
//
// Get Engine Instance
//
//	ruleEngine, ok := pvflow.Get("sensors")
package pvflow

import (
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/engine"
)

// Registry 默认组件注册器
var Registry = engine.Registry

// NewConfig creates a new Config with the default parser, component
// registry and context storage.
func NewConfig(opts ...types.Option) types.Config {
	return engine.NewConfig(opts...)
}

// WithConfig is an option that sets the Config of the RuleEngine.
func WithConfig(config types.Config) engine.RuleEngineOption {
	return engine.WithConfig(config)
}

// Load 加载指定文件夹及其子文件夹所有*.json规则链文件到默认规则引擎池
// 规则链ID，使用文件配置的 ruleChain.id
func Load(folderPath string, opts ...engine.RuleEngineOption) error {
	return engine.DefaultPool.Load(folderPath, opts...)
}

// New 创建一个新的RuleEngine并将其存储在默认规则引擎池中
// 如果指定id="",则使用规则链文件的ruleChain.id
func New(id string, rootRuleChainSrc []byte, opts ...engine.RuleEngineOption) (*engine.RuleEngine, error) {
	return engine.DefaultPool.New(id, rootRuleChainSrc, opts...)
}

// Get 获取指定ID规则引擎实例
func Get(id string) (*engine.RuleEngine, bool) {
	return engine.DefaultPool.Get(id)
}

// Del 删除指定ID规则引擎实例
func Del(id string) {
	engine.DefaultPool.Del(id)
}

// Stop 释放所有规则引擎实例
func Stop() {
	engine.DefaultPool.Stop()
}

// OnMsg 调用所有规则引擎实例处理消息
func OnMsg(msg types.RuleMsg) {
	engine.DefaultPool.OnMsg(msg)
}
