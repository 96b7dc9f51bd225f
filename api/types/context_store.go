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

import "context"

// ContextStore is a key value store bound to one context scope (node, flow or global).
// The storage argument names the backend; "" and "default" select the default backend.
type ContextStore interface {
	// Get returns the value and whether the key exists.
	Get(key string, storage string) (interface{}, bool, error)
	// Set stores the value under key.
	Set(key string, value interface{}, storage string) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string, storage string) error
	// Keys lists the keys of this scope.
	Keys(storage string) ([]string, error)
}

// ContextStorage creates scoped ContextStore views over a set of named backends.
type ContextStorage interface {
	// Scope returns a store whose keys are prefixed with namespace.
	// ctx bounds the calls made through the returned store.
	Scope(ctx context.Context, namespace string) ContextStore
	// Close releases all backends.
	Close() error
}

// StorageBackend is one named context storage module: memory, localfilesystem, redis or sql.
type StorageBackend interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (interface{}, bool, error)
	// Set stores the value under key.
	Set(ctx context.Context, key string, value interface{}) error
	// Delete removes the key.
	Delete(ctx context.Context, key string) error
	// Keys lists all keys that start with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases the backend resources.
	Close() error
}
