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


// Package contextstore implements the node, flow and global context stores of
// the rule engine on top of named storage backends.
//
// Backends are created from settings like:
//
//	contextstore.Settings{
//		Default: "memory",
//		Stores: map[string]contextstore.StoreConfig{
//			"memory": {Module: contextstore.ModuleMemory},
//			"file":   {Module: contextstore.ModuleLocalFileSystem, Options: map[string]interface{}{"dir": "./data"}},
//		},
//	}
package contextstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rulego/pvflow/api/types"
)

const (
	ModuleMemory          = "memory"
	ModuleLocalFileSystem = "localfilesystem"
	ModuleRedis           = "redis"
	ModuleSql             = "sql"
)

// DefaultTimeout bounds one backend call made through a scoped store.
const DefaultTimeout = 5 * time.Second

// Factory creates a backend from its module options.
type Factory func(options map[string]interface{}) (types.StorageBackend, error)

var (
	modulesLock sync.RWMutex
	modules     = map[string]Factory{
		ModuleMemory:          NewMemoryBackendFromOptions,
		ModuleLocalFileSystem: NewFileBackendFromOptions,
		ModuleRedis:           NewRedisBackendFromOptions,
		ModuleSql:             NewSqlBackendFromOptions,
	}
)

// RegisterModule adds or replaces a backend module.
func RegisterModule(name string, factory Factory) {
	modulesLock.Lock()
	defer modulesLock.Unlock()
	modules[name] = factory
}

func getModule(name string) (Factory, bool) {
	modulesLock.RLock()
	defer modulesLock.RUnlock()
	f, ok := modules[name]
	return f, ok
}

// StoreConfig configures one named backend.
type StoreConfig struct {
	// Module is one of memory, localfilesystem, redis, sql
	Module string
	// Options are module specific, decoded with maps.Map2Struct
	Options map[string]interface{}
}

// Settings configures a Manager.
type Settings struct {
	// Default is the store used for the "" and "default" storage names.
	// If empty and only one store is configured, that store is the default.
	Default string
	// Stores maps storage names to backends.
	Stores map[string]StoreConfig
	// Timeout bounds each backend call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Manager owns the named backends and hands out scoped stores.
type Manager struct {
	backends    map[string]types.StorageBackend
	defaultName string
	timeout     time.Duration
}

var _ types.ContextStorage = (*Manager)(nil)

// NewDefaultManager returns a manager with a single memory store.
func NewDefaultManager() *Manager {
	return NewManagerWithBackends(ModuleMemory, map[string]types.StorageBackend{
		ModuleMemory: NewMemoryBackend(),
	})
}

// NewManagerWithBackends creates a manager over already opened backends.
func NewManagerWithBackends(defaultName string, backends map[string]types.StorageBackend) *Manager {
	return &Manager{backends: backends, defaultName: defaultName, timeout: DefaultTimeout}
}

// NewManager opens every configured backend. All configuration problems are
// reported together; backends opened before a failure are closed again.
func NewManager(settings Settings) (*Manager, error) {
	if len(settings.Stores) == 0 {
		m := NewDefaultManager()
		if settings.Timeout > 0 {
			m.timeout = settings.Timeout
		}
		if settings.Default != "" && settings.Default != ModuleMemory && settings.Default != types.DefaultStorage {
			return nil, fmt.Errorf("default storage %s: %w", settings.Default, types.ErrStorageNotFound)
		}
		return m, nil
	}
	var result *multierror.Error
	backends := make(map[string]types.StorageBackend, len(settings.Stores))
	for name, storeConfig := range settings.Stores {
		if name == "" || name == types.DefaultStorage {
			result = multierror.Append(result, fmt.Errorf("storage name %q is reserved", name))
			continue
		}
		factory, ok := getModule(storeConfig.Module)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("storage %s: unknown module %q", name, storeConfig.Module))
			continue
		}
		backend, err := factory(storeConfig.Options)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("storage %s: %w", name, err))
			continue
		}
		backends[name] = backend
	}
	defaultName := settings.Default
	if defaultName == "" && len(settings.Stores) == 1 {
		for name := range settings.Stores {
			defaultName = name
		}
	}
	if _, ok := settings.Stores[defaultName]; !ok {
		result = multierror.Append(result, fmt.Errorf("default storage %q: %w", defaultName, types.ErrStorageNotFound))
	}
	if err := result.ErrorOrNil(); err != nil {
		for _, b := range backends {
			_ = b.Close()
		}
		return nil, err
	}
	m := NewManagerWithBackends(defaultName, backends)
	if settings.Timeout > 0 {
		m.timeout = settings.Timeout
	}
	return m, nil
}

// Backend resolves a storage name. "" and "default" resolve to the default store.
func (m *Manager) Backend(storage string) (types.StorageBackend, error) {
	name := storage
	if name == "" || name == types.DefaultStorage {
		name = m.defaultName
	}
	if b, ok := m.backends[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%s: %w", storage, types.ErrStorageNotFound)
}

// DefaultName returns the name of the default store.
func (m *Manager) DefaultName() string {
	return m.defaultName
}

// Names returns the configured storage names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.backends))
	for name := range m.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scope returns a store whose keys live under namespace.
func (m *Manager) Scope(ctx context.Context, namespace string) types.ContextStore {
	if ctx == nil {
		ctx = context.Background()
	}
	return &scopedStore{manager: m, ctx: ctx, namespace: namespace}
}

// Close closes every backend.
func (m *Manager) Close() error {
	var result *multierror.Error
	for name, b := range m.backends {
		if err := b.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close storage %s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}

// NodeNamespace 节点私有上下文命名空间
func NodeNamespace(chainId, nodeId string) string {
	return "node" + types.NamespaceSeparator + chainId + types.NamespaceSeparator + nodeId + types.NamespaceSeparator
}

// FlowNamespace 规则链共享上下文命名空间
func FlowNamespace(chainId string) string {
	return "flow" + types.NamespaceSeparator + chainId + types.NamespaceSeparator
}

// GlobalNamespace 全局上下文命名空间
const GlobalNamespace = types.Global + types.NamespaceSeparator

type scopedStore struct {
	manager   *Manager
	ctx       context.Context
	namespace string
}

func (s *scopedStore) call(storage string, f func(ctx context.Context, b types.StorageBackend) error) error {
	b, err := s.manager.Backend(storage)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.manager.timeout)
	defer cancel()
	return f(ctx, b)
}

func (s *scopedStore) Get(key string, storage string) (value interface{}, ok bool, err error) {
	err = s.call(storage, func(ctx context.Context, b types.StorageBackend) error {
		var e error
		value, ok, e = b.Get(ctx, s.namespace+key)
		return e
	})
	return
}

func (s *scopedStore) Set(key string, value interface{}, storage string) error {
	return s.call(storage, func(ctx context.Context, b types.StorageBackend) error {
		return b.Set(ctx, s.namespace+key, value)
	})
}

func (s *scopedStore) Delete(key string, storage string) error {
	return s.call(storage, func(ctx context.Context, b types.StorageBackend) error {
		return b.Delete(ctx, s.namespace+key)
	})
}

func (s *scopedStore) Keys(storage string) (keys []string, err error) {
	err = s.call(storage, func(ctx context.Context, b types.StorageBackend) error {
		full, e := b.Keys(ctx, s.namespace)
		if e != nil {
			return e
		}
		keys = make([]string, 0, len(full))
		for _, k := range full {
			keys = append(keys, strings.TrimPrefix(k, s.namespace))
		}
		sort.Strings(keys)
		return nil
	})
	return
}
