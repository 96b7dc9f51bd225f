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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/utils/json"
	"github.com/rulego/pvflow/utils/maps"
	"github.com/spf13/afero"
)

// DefaultFileName is the file written inside FileConfig.Dir.
const DefaultFileName = "context.json"

// FileConfig localfilesystem 模块配置
type FileConfig struct {
	// Dir 存储目录
	Dir string
	// FileName 存储文件名，默认context.json
	FileName string
}

// FileBackend persists all values as one JSON document. Every Set and Delete
// rewrites the document, so values survive a restart and are read back with
// JSON types (numbers become float64).
type FileBackend struct {
	fs    afero.Fs
	path  string
	items map[string]interface{}
	mu    sync.RWMutex
}

var _ types.StorageBackend = (*FileBackend)(nil)

// NewFileBackendFromOptions is the localfilesystem module factory.
func NewFileBackendFromOptions(options map[string]interface{}) (types.StorageBackend, error) {
	var config FileConfig
	if err := maps.Map2Struct(options, &config); err != nil {
		return nil, err
	}
	return NewFileBackend(afero.NewOsFs(), config)
}

// NewFileBackend opens or creates the store file on fs.
func NewFileBackend(fs afero.Fs, config FileConfig) (*FileBackend, error) {
	if config.Dir == "" {
		return nil, errors.New("dir can not be empty")
	}
	if config.FileName == "" {
		config.FileName = DefaultFileName
	}
	if err := fs.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, err
	}
	b := &FileBackend{
		fs:    fs,
		path:  filepath.Join(config.Dir, config.FileName),
		items: make(map[string]interface{}),
	}
	data, err := afero.ReadFile(fs, b.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &b.items); err != nil {
			return nil, fmt.Errorf("parse %s: %w", b.path, err)
		}
	}
	return b, nil
}

func (b *FileBackend) Get(_ context.Context, key string) (interface{}, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.items[key]
	return v, ok, nil
}

func (b *FileBackend) Set(_ context.Context, key string, value interface{}) error {
	// normalize to what a reload would produce
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var normalized interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	old, existed := b.items[key]
	b.items[key] = normalized
	if err := b.flush(); err != nil {
		if existed {
			b.items[key] = old
		} else {
			delete(b.items, key)
		}
		return err
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	old, existed := b.items[key]
	if !existed {
		return nil
	}
	delete(b.items, key)
	if err := b.flush(); err != nil {
		b.items[key] = old
		return err
	}
	return nil
}

func (b *FileBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	for k := range b.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *FileBackend) Close() error {
	return nil
}

// flush writes to a temp file first and renames it over the store file.
func (b *FileBackend) flush() error {
	data, err := json.MarshalIndent(b.items)
	if err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return b.fs.Rename(tmp, b.path)
}
