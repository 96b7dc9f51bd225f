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

// Package maps decodes configuration maps into structs and reads or writes
// dot separated property paths of message maps.
package maps

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// PathSeparator separates the segments of a property path, e.g. payload.temperature
const PathSeparator = "."

// Map2Struct Decode takes an input structure and uses reflection to translate it to
// the output structure. output must be a pointer to a map or struct.
// Input is weakly typed: "true" decodes into a bool field, "5s" into a time.Duration.
// Slices and maps present in input replace the existing values of output.
func Map2Struct(input interface{}, output interface{}) error {
	if input == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Get returns the value at the dot separated path.
func Get(m map[string]interface{}, path string) (interface{}, bool) {
	if m == nil || path == "" {
		return nil, false
	}
	var current interface{} = m
	for _, key := range strings.Split(path, PathSeparator) {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if current, ok = node[key]; !ok {
			return nil, false
		}
	}
	return current, true
}

// Set returns a copy of m with value stored at the dot separated path.
// Maps along the path are copied, m itself is never modified.
// Missing or non map intermediate segments are replaced with new maps.
func Set(m map[string]interface{}, path string, value interface{}) map[string]interface{} {
	keys := strings.Split(path, PathSeparator)
	return setPath(m, keys, value)
}

func setPath(m map[string]interface{}, keys []string, value interface{}) map[string]interface{} {
	result := Copy(m)
	if len(keys) == 1 {
		result[keys[0]] = value
		return result
	}
	child, _ := result[keys[0]].(map[string]interface{})
	result[keys[0]] = setPath(child, keys[1:], value)
	return result
}

// Copy returns a shallow copy of m. A nil map yields an empty map.
func Copy(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		result[k] = v
	}
	return result
}
