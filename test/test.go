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


// Package test provides helpers for testing components outside a rule engine:
// a single node rule context, a chain context holding config nodes and a
// logger that captures warnings.
package test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rulego/pvflow/api/types"
)

// CaptureLogger records every log line, prefixed with its level.
type CaptureLogger struct {
	mu    sync.Mutex
	lines []string
}

var _ types.LevelLogger = (*CaptureLogger)(nil)

func (l *CaptureLogger) add(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, v...))
}

func (l *CaptureLogger) Printf(format string, v ...interface{}) {
	l.add("INFO", format, v...)
}

func (l *CaptureLogger) Debugf(format string, v ...interface{}) {
	l.add("DEBUG", format, v...)
}

func (l *CaptureLogger) Warnf(format string, v ...interface{}) {
	l.add("WARN", format, v...)
}

func (l *CaptureLogger) Errorf(format string, v ...interface{}) {
	l.add("ERROR", format, v...)
}

// Lines returns a copy of the recorded lines.
func (l *CaptureLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Warnings returns the WARN lines without their level prefix.
func (l *CaptureLogger) Warnings() []string {
	var result []string
	for _, line := range l.Lines() {
		if strings.HasPrefix(line, "WARN ") {
			result = append(result, strings.TrimPrefix(line, "WARN "))
		}
	}
	return result
}

// HasWarning reports whether a warning containing sub was logged.
func (l *CaptureLogger) HasWarning(sub string) bool {
	for _, w := range l.Warnings() {
		if strings.Contains(w, sub) {
			return true
		}
	}
	return false
}

// ChainCtx is a rule chain context that only knows config nodes.
type ChainCtx struct {
	id          string
	config      types.Config
	configNodes map[string]types.ConfigNode
}

var _ types.ChainCtx = (*ChainCtx)(nil)

// NewChainCtx creates a chain context with the given id.
func NewChainCtx(id string, config types.Config) *ChainCtx {
	return &ChainCtx{id: id, config: config, configNodes: make(map[string]types.ConfigNode)}
}

// AddConfigNode registers an initialized config node under id.
func (c *ChainCtx) AddConfigNode(id string, node types.ConfigNode) *ChainCtx {
	c.configNodes[id] = node
	return c
}

func (c *ChainCtx) New() types.Node {
	return NewChainCtx(c.id, c.config)
}

func (c *ChainCtx) Type() string {
	return "chain"
}

func (c *ChainCtx) Init(_ types.Config, _ types.Configuration) error {
	return nil
}

func (c *ChainCtx) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellSuccess(msg)
}

func (c *ChainCtx) Destroy() {
}

func (c *ChainCtx) Config() types.Config {
	return c.config
}

func (c *ChainCtx) IsDebugMode() bool {
	return false
}

func (c *ChainCtx) GetNodeId() types.RuleNodeId {
	return types.RuleNodeId{Id: c.id, Type: types.CHAIN}
}

func (c *ChainCtx) DSL() []byte {
	return nil
}

func (c *ChainCtx) Definition() *types.RuleChain {
	return &types.RuleChain{RuleChain: types.RuleChainBaseInfo{ID: c.id}}
}

func (c *ChainCtx) GetNodeById(_ types.RuleNodeId) (types.NodeCtx, bool) {
	return nil, false
}

func (c *ChainCtx) GetConfigNode(id string) (types.ConfigNode, bool) {
	n, ok := c.configNodes[id]
	return n, ok
}
