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


// Package value resolves, writes and gates the typed values declared by a
// values config. It has no dependency on the rule engine runtime beyond the
// ContextStore interface, so it can be driven directly:
//
//	cfg, _ := value.NewValuesConfig("TestConfig", []value.Declaration{
//		{Name: "number", DataType: value.Num, Default: 23, Scope: value.ScopeGlobal},
//	})
//	p, _ := value.NewProcessor(cfg, value.Settings{Value: "number", Command: value.CommandRead}, nil)
//	result, err := p.Handle(store, value.Message{"payload": "any"})
package value

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/rulego/pvflow/utils/cast"
)

// DataType 值的数据类型
type DataType string

const (
	Bool = DataType("bool")
	Num  = DataType("num")
	Str  = DataType("str")
)

// Scope 值的存储作用域
type Scope string

const (
	ScopeNode   = Scope("node")
	ScopeFlow   = Scope("flow")
	ScopeGlobal = Scope("global")
)

// Command 节点操作
type Command string

const (
	CommandRead  = Command("read")
	CommandWrite = Command("write")
)

// Coerce converts v to the Go representation of dataType:
// bool, float64 or string.
func Coerce(dataType DataType, v interface{}) (interface{}, error) {
	switch dataType {
	case Bool:
		return cast.ToBoolE(v)
	case Num:
		return cast.ToFloat64E(v)
	case Str:
		if v == nil {
			return nil, errors.New("unable to cast nil to string")
		}
		return cast.ToStringE(v)
	default:
		return nil, fmt.Errorf("unknown datatype %q", dataType)
	}
}

// IsOfType reports whether v already holds a value of dataType.
func IsOfType(dataType DataType, v interface{}) bool {
	switch dataType {
	case Bool:
		_, ok := v.(bool)
		return ok
	case Num:
		return cast.IsNumber(v)
	case Str:
		_, ok := v.(string)
		return ok
	default:
		return false
	}
}

// numbers of different kinds are equal when their float64 values are
var numericComparer = cmp.FilterValues(func(a, b interface{}) bool {
	return cast.IsNumber(a) && cast.IsNumber(b)
}, cmp.Comparer(func(a, b interface{}) bool {
	return cast.ToFloat64(a) == cast.ToFloat64(b)
}))

// Equal compares two values the way change detection and block-if rules do.
// Numbers compare numerically across kinds, at any depth. Other scalars use ==,
// maps and slices are compared deeply.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if cast.IsNumber(a) && cast.IsNumber(b) {
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}
	if !comparableKinds(a, b) {
		return false
	}
	return deepEqual(a, b)
}

// cmp panics on unexported struct fields, plain reflection handles those
func deepEqual(a, b interface{}) (equal bool) {
	defer func() {
		if r := recover(); r != nil {
			equal = reflect.DeepEqual(a, b)
		}
	}()
	return cmp.Equal(a, b, numericComparer)
}

func comparableKinds(a, b interface{}) bool {
	ka, kb := reflect.TypeOf(a).Kind(), reflect.TypeOf(b).Kind()
	if ka == reflect.Map || ka == reflect.Slice {
		return ka == kb
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}
