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
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/rulego/pvflow/api/types"
)

// KeySeparator joins the config name and the value name into the context key.
const KeySeparator = "_"

// Declaration declares one named, typed value.
type Declaration struct {
	// Name 值名称，在同一个配置中唯一
	Name string `json:"name" validate:"required"`
	// DataType 数据类型：bool、num、str
	DataType DataType `json:"datatype" mapstructure:"datatype" validate:"oneof=bool num str"`
	// Default 上下文中不存在该值时使用的默认值
	Default interface{} `json:"default"`
	// Scope 作用域：node、flow、global，默认global
	Scope Scope `json:"scope" validate:"oneof=node flow global"`
	// Storage 存储名称，空或者default使用默认存储
	Storage string `json:"storage"`
}

// ValuesConfig is an immutable catalog of declarations shared by the value
// nodes of a rule chain.
type ValuesConfig struct {
	name         string
	declarations []Declaration
	index        map[string]int
}

var validate = validator.New()

// NewValuesConfig validates the declarations and coerces their defaults.
// Every problem found is reported in the returned error.
func NewValuesConfig(name string, declarations []Declaration) (*ValuesConfig, error) {
	var result *multierror.Error
	if name == "" {
		result = multierror.Append(result, fmt.Errorf("values config name can not be empty"))
	}
	c := &ValuesConfig{
		name:         name,
		declarations: make([]Declaration, 0, len(declarations)),
		index:        make(map[string]int, len(declarations)),
	}
	for i, d := range declarations {
		if d.Scope == "" {
			d.Scope = ScopeGlobal
		}
		if err := validate.Struct(d); err != nil {
			result = multierror.Append(result, fmt.Errorf("value[%d] %q: %w", i, d.Name, err))
			continue
		}
		if _, ok := c.index[d.Name]; ok {
			result = multierror.Append(result, fmt.Errorf("value[%d]: duplicate name %q", i, d.Name))
			continue
		}
		if d.Default != nil {
			v, err := Coerce(d.DataType, d.Default)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("value[%d] %q: invalid default: %w", i, d.Name, err))
				continue
			}
			d.Default = v
		} else {
			d.Default = zeroValue(d.DataType)
		}
		c.index[d.Name] = len(c.declarations)
		c.declarations = append(c.declarations, d)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func zeroValue(dataType DataType) interface{} {
	switch dataType {
	case Bool:
		return false
	case Num:
		return float64(0)
	default:
		return ""
	}
}

// Name 配置名称
func (c *ValuesConfig) Name() string {
	return c.name
}

// Declarations returns a copy of the declarations in configuration order.
func (c *ValuesConfig) Declarations() []Declaration {
	return append([]Declaration(nil), c.declarations...)
}

// Resolve finds the declaration with the given name.
func (c *ValuesConfig) Resolve(name string) (Declaration, bool) {
	i, ok := c.index[name]
	if !ok {
		return Declaration{}, false
	}
	return c.declarations[i], true
}

// ContextKey returns <configName>_<valueName>.
func (c *ValuesConfig) ContextKey(name string) string {
	return c.name + KeySeparator + name
}

// Lookup is Resolve returning types.ErrValueNotDeclared for unknown names.
func (c *ValuesConfig) Lookup(name string) (Declaration, error) {
	d, ok := c.Resolve(name)
	if !ok {
		return Declaration{}, fmt.Errorf("%s in %s: %w", name, c.name, types.ErrValueNotDeclared)
	}
	return d, nil
}
