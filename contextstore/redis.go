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
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/utils/json"
	"github.com/rulego/pvflow/utils/maps"
)

// RedisConfig redis 模块配置
type RedisConfig struct {
	// Addr redis地址，例如：127.0.0.1:6379
	Addr     string
	Password string
	DB       int
	// Prefix 所有key的前缀
	Prefix string
}

// RedisBackend stores JSON encoded values in redis.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

var _ types.StorageBackend = (*RedisBackend)(nil)

// NewRedisBackendFromOptions is the redis module factory. It pings the server.
func NewRedisBackendFromOptions(options map[string]interface{}) (types.StorageBackend, error) {
	var config RedisConfig
	if err := maps.Map2Struct(options, &config); err != nil {
		return nil, err
	}
	if config.Addr == "" {
		config.Addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", config.Addr, err)
	}
	return NewRedisBackend(client, config.Prefix), nil
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (interface{}, bool, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.prefix+key, data, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.prefix+key).Err()
}

func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, b.prefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(b.prefix):])
	}
	return keys, iter.Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
