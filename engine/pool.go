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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rulego/pvflow/api/types"
	"github.com/spf13/afero"
)

// DefaultPool 默认规则引擎池
var DefaultPool = NewPool()

// Pool 规则引擎实例池，按规则链ID管理
type Pool struct {
	// entries is a concurrent map to store rule engine instances.
	entries sync.Map
	// OnDeleted 规则引擎删除回调
	OnDeleted func(id string)
}

// NewPool creates a new instance of a rule engine pool.
func NewPool() *Pool {
	return &Pool{}
}

// Load 加载文件夹下所有*.json规则链文件，规则链ID取自ruleChain.id
// 禁用的规则链会被跳过，所有加载错误合并返回
func (g *Pool) Load(folderPath string, opts ...RuleEngineOption) error {
	return g.LoadFs(afero.NewOsFs(), folderPath, opts...)
}

// LoadFs 从指定文件系统加载规则链
func (g *Pool) LoadFs(fs afero.Fs, folderPath string, opts ...RuleEngineOption) error {
	var paths []string
	err := afero.Walk(fs, folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)
	var result *multierror.Error
	for _, path := range paths {
		b, err := afero.ReadFile(fs, path)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if disabled(b) {
			continue
		}
		if _, err := g.New("", b, opts...); err != nil {
			result = multierror.Append(result, fmt.Errorf("load %s: %w", path, err))
		}
	}
	return result.ErrorOrNil()
}

// disabled 规则链是否被禁用
func disabled(def []byte) bool {
	ruleChain, err := (&JsonParser{}).DecodeRuleChain(def)
	return err == nil && ruleChain.RuleChain.Disabled
}

// New creates a new RuleEngine instance and stores it in the rule chain pool.
// If the specified id is empty, the ruleChain.id from the rule chain file is used.
// An existing instance with the same id is returned as is.
func (g *Pool) New(id string, rootRuleChainSrc []byte, opts ...RuleEngineOption) (*RuleEngine, error) {
	if id != "" {
		if v, ok := g.entries.Load(id); ok {
			return v.(*RuleEngine), nil
		}
	}
	ruleEngine, err := NewRuleEngine(id, rootRuleChainSrc, opts...)
	if err != nil {
		return nil, err
	}
	actual, loaded := g.entries.LoadOrStore(ruleEngine.Id(), ruleEngine)
	if loaded {
		ruleEngine.Stop()
	}
	return actual.(*RuleEngine), nil
}

// Get retrieves a rule engine instance by its ID.
func (g *Pool) Get(id string) (*RuleEngine, bool) {
	v, ok := g.entries.Load(id)
	if ok {
		return v.(*RuleEngine), ok
	}
	return nil, false
}

// Del deletes a rule engine instance by its ID.
func (g *Pool) Del(id string) {
	v, ok := g.entries.LoadAndDelete(id)
	if ok {
		v.(*RuleEngine).Stop()
		if g.OnDeleted != nil {
			g.OnDeleted(id)
		}
	}
}

// Ids 所有规则链ID，已排序
func (g *Pool) Ids() []string {
	var ids []string
	g.entries.Range(func(key, value any) bool {
		ids = append(ids, key.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Stop releases all rule engine instances in the pool.
func (g *Pool) Stop() {
	for _, id := range g.Ids() {
		g.Del(id)
	}
}

// Range iterates over all rule engine instances in the pool.
func (g *Pool) Range(f func(key, value any) bool) {
	g.entries.Range(f)
}

// OnMsg 所有规则链都处理该消息
func (g *Pool) OnMsg(msg types.RuleMsg) {
	g.entries.Range(func(key, value any) bool {
		value.(*RuleEngine).OnMsg(msg.Copy())
		return true
	})
}
