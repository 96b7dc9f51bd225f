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
	"errors"
	"fmt"

	"github.com/mitchellh/copystructure"
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/utils/maps"
)

const (
	// DefaultMsgProperty 默认读写的消息属性
	DefaultMsgProperty = types.PayloadKey
	// DefaultCollectValuesMsgProperty 默认收集值的消息属性
	DefaultCollectValuesMsgProperty = "collectedValues"
)

// Message is the open property map of a message, msg.payload is Message["payload"].
type Message = map[string]interface{}

// WarnFunc receives non fatal problems found while handling a message.
type WarnFunc func(format string, args ...interface{})

// Settings are the per node options of a value node.
type Settings struct {
	// Value 引用的值名称
	Value string
	// Command read或者write，默认read
	Command Command
	// MsgProperty 读写的消息属性，支持多级如payload.temperature，默认payload
	MsgProperty string
	// CollectValues 是否把值收集到CollectValuesMsgProperty
	CollectValues bool
	// CollectValuesMsgProperty 收集值的消息属性，默认collectedValues
	CollectValuesMsgProperty string
	// BlockIfEnable 是否启用阻断规则
	BlockIfEnable bool
	// BlockIfRule eq或者neq
	BlockIfRule string
	// BlockIfCompareValue 阻断规则比较值
	BlockIfCompareValue interface{}
	// Storage 覆盖值声明的存储名称
	Storage string
}

// Result of handling one message. A nil message means nothing is sent on
// that output.
type Result struct {
	// Primary the message for the primary output
	Primary Message
	// OnChange a deep copy of Primary, only after a write that changed the stored value
	OnChange Message
	// Blocked the block-if rule matched, both outputs are nil
	Blocked bool
	// Changed a write modified the stored value
	Changed bool
	// Value the effective value
	Value interface{}
}

// Processor performs the read or write of one declared value.
// It holds no state that changes between messages.
type Processor struct {
	declaration Declaration
	key         string
	storage     string
	settings    Settings
	rule        BlockIfRule
	compare     interface{}
	compareErr  error
	warn        WarnFunc
}

// NewProcessor resolves settings.Value in config and applies setting defaults.
func NewProcessor(config *ValuesConfig, settings Settings, warn WarnFunc) (*Processor, error) {
	if config == nil {
		return nil, errors.New("values config is nil")
	}
	if settings.Value == "" {
		return nil, errors.New("value can not be empty")
	}
	declaration, err := config.Lookup(settings.Value)
	if err != nil {
		return nil, err
	}
	switch settings.Command {
	case "":
		settings.Command = CommandRead
	case CommandRead, CommandWrite:
	default:
		return nil, fmt.Errorf("unknown command %q", settings.Command)
	}
	if settings.MsgProperty == "" {
		settings.MsgProperty = DefaultMsgProperty
	}
	if settings.CollectValuesMsgProperty == "" {
		settings.CollectValuesMsgProperty = DefaultCollectValuesMsgProperty
	}
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	p := &Processor{
		declaration: declaration,
		key:         config.ContextKey(declaration.Name),
		storage:     declaration.Storage,
		settings:    settings,
		rule:        ParseBlockIfRule(settings.BlockIfRule),
		warn:        warn,
	}
	if settings.Storage != "" {
		p.storage = settings.Storage
	}
	p.compare, p.compareErr = Coerce(declaration.DataType, settings.BlockIfCompareValue)
	return p, nil
}

// Declaration 引用的值声明
func (p *Processor) Declaration() Declaration {
	return p.declaration
}

// ContextKey 上下文存储key
func (p *Processor) ContextKey() string {
	return p.key
}

// Storage 实际使用的存储名称
func (p *Processor) Storage() string {
	return p.storage
}

// Handle reads or writes the value through store and builds the outputs.
// in is not modified. Errors are store failures only; type problems are
// reported through the warn function.
func (p *Processor) Handle(store types.ContextStore, in Message) (Result, error) {
	var result Result
	var err error
	if p.settings.Command == CommandWrite {
		result.Value, result.Changed, err = p.write(store, in)
	} else {
		result.Value, err = p.read(store)
	}
	if err != nil {
		return Result{}, err
	}
	if p.blocks(result.Value) {
		return Result{Blocked: true, Changed: result.Changed, Value: result.Value}, nil
	}
	primary := maps.Set(in, p.settings.MsgProperty, result.Value)
	if p.settings.CollectValues {
		collected := Collect(p.accumulator(in), p.key, result.Value)
		primary = maps.Set(primary, p.settings.CollectValuesMsgProperty, collected)
	}
	result.Primary = primary
	if result.Changed {
		copied, err := copystructure.Copy(primary)
		if err != nil {
			return Result{}, fmt.Errorf("copy onChange message: %w", err)
		}
		result.OnChange = copied.(map[string]interface{})
	}
	return result, nil
}

func (p *Processor) read(store types.ContextStore) (interface{}, error) {
	stored, ok, err := store.Get(p.key, p.storage)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.key, err)
	}
	if !ok {
		return p.declaration.Default, nil
	}
	return p.coerce(stored), nil
}

func (p *Processor) write(store types.ContextStore, in Message) (interface{}, bool, error) {
	raw, ok := maps.Get(in, p.settings.MsgProperty)
	if !ok {
		p.warn("Missing message property %s, %s is not written", p.settings.MsgProperty, p.key)
		v, err := p.read(store)
		return v, false, err
	}
	incoming := p.coerce(raw)
	previous, exists, err := store.Get(p.key, p.storage)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", p.key, err)
	}
	if exists && Equal(previous, incoming) {
		return incoming, false, nil
	}
	if err := store.Set(p.key, incoming, p.storage); err != nil {
		return nil, false, fmt.Errorf("write %s: %w", p.key, err)
	}
	return incoming, true, nil
}

// coerce passes the raw value through when it does not fit the datatype.
func (p *Processor) coerce(raw interface{}) interface{} {
	v, err := Coerce(p.declaration.DataType, raw)
	if err != nil {
		p.warn("Value type mismatch of %s, expected %s: %v", p.key, p.declaration.DataType, err)
		return raw
	}
	return v
}

func (p *Processor) blocks(v interface{}) bool {
	if !p.settings.BlockIfEnable {
		return false
	}
	if p.rule.Kind == RuleUnrecognized {
		p.warn("Unknown block-if rule: %q", p.rule.Raw)
		return false
	}
	if p.compareErr != nil || !IsOfType(p.declaration.DataType, v) {
		p.warn("Type mismatch of block flow values: value %v (%T), compare value %v (%T), expected %s",
			v, v, p.settings.BlockIfCompareValue, p.settings.BlockIfCompareValue, p.declaration.DataType)
		return false
	}
	return p.rule.Matches(Equal(v, p.compare))
}

func (p *Processor) accumulator(in Message) map[string]interface{} {
	raw, ok := maps.Get(in, p.settings.CollectValuesMsgProperty)
	if !ok || raw == nil {
		return nil
	}
	if acc, ok := raw.(map[string]interface{}); ok {
		return acc
	}
	p.warn("Message property %s is not a mapping, collected values start empty", p.settings.CollectValuesMsgProperty)
	return nil
}
