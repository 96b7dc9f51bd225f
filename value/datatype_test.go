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


package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name     string
		dataType DataType
		input    interface{}
		expect   interface{}
		hasErr   bool
	}{
		{"bool", Bool, true, true, false},
		{"bool string", Bool, " False ", false, false},
		{"bool from number", Bool, 2305, nil, true},
		{"num int", Num, 23, 23.0, false},
		{"num string", Num, "42.5", 42.5, false},
		{"num bool", Num, true, nil, true},
		{"str", Str, "abc", "abc", false},
		{"str number", Str, 23.0, "23", false},
		{"str bool", Str, false, "false", false},
		{"str map", Str, map[string]interface{}{"a": 1.0}, `{"a":1}`, false},
		{"str nil", Str, nil, nil, true},
		{"unknown type", DataType("date"), "x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(tt.dataType, tt.input)
			assert.Equal(t, tt.hasErr, err != nil)
			if !tt.hasErr {
				assert.Equal(t, tt.expect, v)
			}
		})
	}
}

func TestIsOfType(t *testing.T) {
	assert.True(t, IsOfType(Bool, false))
	assert.False(t, IsOfType(Bool, "true"))
	assert.True(t, IsOfType(Num, 2305))
	assert.True(t, IsOfType(Num, 1.5))
	assert.False(t, IsOfType(Num, "1"))
	assert.True(t, IsOfType(Str, ""))
	assert.False(t, IsOfType(Str, 1))
	assert.False(t, IsOfType("date", 1))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(23, 23.0))
	assert.True(t, Equal(int64(7), uint8(7)))
	assert.False(t, Equal(23, 24.0))
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal("1", 1))
	assert.False(t, Equal(true, "true"))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, ""))
	assert.True(t, Equal(
		map[string]interface{}{"a": 1, "b": []interface{}{"x", 2.0}},
		map[string]interface{}{"a": 1.0, "b": []interface{}{"x", 2}},
	))
	assert.False(t, Equal(
		map[string]interface{}{"a": 1},
		map[string]interface{}{"a": 2},
	))
	assert.False(t, Equal(map[string]interface{}{}, []interface{}{}))
}

func TestCollect(t *testing.T) {
	acc := map[string]interface{}{"cfg_a": "x"}
	out := Collect(acc, "cfg_b", 98.0)
	assert.Equal(t, map[string]interface{}{"cfg_a": "x", "cfg_b": 98.0}, out)
	assert.Equal(t, map[string]interface{}{"cfg_a": "x"}, acc)
	assert.Equal(t, map[string]interface{}{"k": true}, Collect(nil, "k", true))
}
