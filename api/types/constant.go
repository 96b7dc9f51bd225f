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

import "errors"

const (
	Global = "global"
	// NamespaceSeparator defines the separator for namespace prefixes
	NamespaceSeparator = ":"
)

const (
	// NodeConfigurationKeyChainCtx 获取规则链上下文Key, value类型: ChainCtx
	NodeConfigurationKeyChainCtx = "$chainCtx"
	//NodeConfigurationKeySelfDefinition 获取节点定义，value类型: RuleNode
	NodeConfigurationKeySelfDefinition = "$selfDefinition"
)

const (
	// DefaultStorage selects the configured default context storage
	DefaultStorage = "default"
)

var (
	// ErrEngineNotInitialized is the error returned when the rule engine is not initialized
	ErrEngineNotInitialized = errors.New("rule engine not initialized")
	// ErrRuleChainHasNoNodes is the error returned when the rule chain has no nodes
	ErrRuleChainHasNoNodes = errors.New("the rule chain has no nodes")
	// ErrEngineDslEmpty is returned when the rule chain dsl is empty.
	ErrEngineDslEmpty = errors.New("dsl can not empty")
	// ErrCycleDetected is returned when the connections of a rule chain form a cycle.
	ErrCycleDetected = errors.New("the rule chain has a cycle")
	// ErrStorageNotFound is returned when a context storage name is not configured.
	ErrStorageNotFound = errors.New("context storage not found")
	// ErrComponentNotFound is returned when a node type is not registered.
	ErrComponentNotFound = errors.New("component not found")
	// ErrComponentExists is returned when registering a node type twice.
	ErrComponentExists = errors.New("component already exists")
	// ErrConfigNodeNotFound is returned when a referenced config node is missing from the chain.
	ErrConfigNodeNotFound = errors.New("config node not found")
	// ErrValueNotDeclared is returned when a value name has no declaration in its values config.
	ErrValueNotDeclared = errors.New("value not declared")
	// ErrRuleChainNotFound is returned when a message targets an unknown rule chain.
	ErrRuleChainNotFound = errors.New("rule chain not found")
)
