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


package contextstore

import (
	"context"
	"strings"
	"sync"

	"github.com/rulego/pvflow/api/types"
)

// MemoryBackend keeps values in process memory. Values are stored as given.
type MemoryBackend struct {
	items map[string]interface{}
	mu    sync.RWMutex
}

var _ types.StorageBackend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]interface{})}
}

// NewMemoryBackendFromOptions is the memory module factory; it has no options.
func NewMemoryBackendFromOptions(_ map[string]interface{}) (types.StorageBackend, error) {
	return NewMemoryBackend(), nil
}

func (c *MemoryBackend) Get(_ context.Context, key string) (interface{}, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *MemoryBackend) Set(_ context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *MemoryBackend) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (c *MemoryBackend) Close() error {
	return nil
}
