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


package persistent

import (
	"context"
	"errors"
	"testing"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/contextstore"
	"github.com/rulego/pvflow/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chainId        = "chain1"
	configNodeId   = "cfg"
	valueNodeType  = "persistentValue"
	configNodeType = "persistentValuesConfig"
)

type output struct {
	relation string
	msg      types.RuleMsg
	err      error
}

type harness struct {
	t        *testing.T
	config   types.Config
	logger   *test.CaptureLogger
	chainCtx *test.ChainCtx
}

func testValues() []interface{} {
	return []interface{}{
		map[string]interface{}{"name": "boolean", "datatype": "bool", "default": true},
		map[string]interface{}{"name": "number", "datatype": "num", "default": 23},
		map[string]interface{}{"name": "string", "datatype": "str", "default": "my string default value"},
		map[string]interface{}{"name": "flowNumber", "datatype": "num", "default": 1, "scope": "flow"},
		map[string]interface{}{"name": "nodeString", "datatype": "str", "scope": "node"},
		map[string]interface{}{"name": "missingStore", "datatype": "num", "storage": "nope"},
	}
}

func newHarness(t *testing.T) *harness {
	logger := &test.CaptureLogger{}
	config := types.NewConfig(types.WithLogger(logger), types.WithContextStorage(contextstore.NewDefaultManager()))
	configNode, err := test.CreateAndInitNodeWithConfig(config, configNodeType, types.Configuration{
		"name":   "TestConfig",
		"values": testValues(),
	}, Registry)
	require.Nil(t, err)
	return &harness{
		t:        t,
		config:   config,
		logger:   logger,
		chainCtx: test.NewChainCtx(chainId, config).AddConfigNode(configNodeId, configNode.(types.ConfigNode)),
	}
}

func (h *harness) node(id string, configuration types.Configuration) types.Node {
	node, err := h.newNode(id, configuration)
	require.Nil(h.t, err)
	return node
}

func (h *harness) newNode(id string, configuration types.Configuration) (types.Node, error) {
	configuration[types.NodeConfigurationKeyChainCtx] = h.chainCtx
	configuration[types.NodeConfigurationKeySelfDefinition] = types.RuleNode{Id: id, Type: valueNodeType}
	if _, ok := configuration["valuesConfig"]; !ok {
		configuration["valuesConfig"] = configNodeId
	}
	return test.CreateAndInitNodeWithConfig(h.config, valueNodeType, configuration, Registry)
}

func (h *harness) send(node types.Node, nodeId string, msg test.Msg) []output {
	var outputs []output
	ctx := test.NewRuleContextFull(h.config, nodeId, h.chainCtx, func(msg types.RuleMsg, relationType string, err error) {
		outputs = append(outputs, output{relation: relationType, msg: msg, err: err})
	})
	test.NodeOnMsgWithContext(h.t, node, ctx, []test.Msg{msg})
	return outputs
}

func (h *harness) global() types.ContextStore {
	return h.config.ContextStorage.Scope(context.Background(), contextstore.GlobalNamespace)
}

func payload(o output) interface{} {
	return o.msg.Properties()["payload"]
}

func TestValuesConfigNode(t *testing.T) {
	t.Run("Instance", func(t *testing.T) {
		node, err := test.CreateAndInitNode(configNodeType, types.Configuration{
			"name":   "TestConfig",
			"values": testValues(),
		}, Registry)
		require.Nil(t, err)
		configNode, ok := node.(types.ConfigNode)
		require.True(t, ok)
		assert.NotNil(t, configNode.Instance())
	})

	t.Run("DuplicateName", func(t *testing.T) {
		_, err := test.CreateAndInitNode(configNodeType, types.Configuration{
			"name": "TestConfig",
			"values": []interface{}{
				map[string]interface{}{"name": "a", "datatype": "num"},
				map[string]interface{}{"name": "a", "datatype": "str"},
			},
		}, Registry)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "duplicate name")
	})

	t.Run("BadDefault", func(t *testing.T) {
		_, err := test.CreateAndInitNode(configNodeType, types.Configuration{
			"name":   "TestConfig",
			"values": []interface{}{map[string]interface{}{"name": "a", "datatype": "num", "default": "abc"}},
		}, Registry)
		assert.NotNil(t, err)
	})

	t.Run("PassThrough", func(t *testing.T) {
		node, err := test.CreateAndInitNode(configNodeType, types.Configuration{"name": "TestConfig"}, Registry)
		require.Nil(t, err)
		var relation string
		test.NodeOnMsg(t, node, []test.Msg{{MsgType: "TEST", Data: "{}"}}, func(msg types.RuleMsg, relationType string, err error) {
			relation = relationType
		})
		assert.Equal(t, types.Success, relation)
	})
}

func TestPersistentValueNodeInit(t *testing.T) {
	h := newHarness(t)

	t.Run("MissingValuesConfig", func(t *testing.T) {
		_, err := h.newNode("s1", types.Configuration{"valuesConfig": "", "value": "number"})
		assert.NotNil(t, err)
	})
	t.Run("ConfigNodeNotFound", func(t *testing.T) {
		_, err := h.newNode("s1", types.Configuration{"valuesConfig": "other", "value": "number"})
		assert.True(t, errors.Is(err, types.ErrConfigNodeNotFound))
	})
	t.Run("ValueNotDeclared", func(t *testing.T) {
		_, err := h.newNode("s1", types.Configuration{"value": "unknown"})
		assert.True(t, errors.Is(err, types.ErrValueNotDeclared))
	})
	t.Run("UnknownCommand", func(t *testing.T) {
		_, err := h.newNode("s1", types.Configuration{"value": "number", "command": "delete"})
		assert.NotNil(t, err)
	})
	t.Run("OutsideChain", func(t *testing.T) {
		_, err := test.CreateAndInitNode(valueNodeType, types.Configuration{"valuesConfig": configNodeId, "value": "number"}, Registry)
		assert.NotNil(t, err)
	})
}

func TestPersistentValueNodeRead(t *testing.T) {
	h := newHarness(t)

	t.Run("Default", func(t *testing.T) {
		for name, expected := range map[string]interface{}{
			"boolean": true,
			"number":  float64(23),
			"string":  "my string default value",
		} {
			node := h.node("s1", types.Configuration{"value": name})
			outputs := h.send(node, "s1", test.Msg{MsgType: "TEST", Data: "any input string", DataType: types.TEXT})
			require.Len(t, outputs, 1, name)
			assert.Equal(t, types.Success, outputs[0].relation)
			assert.Equal(t, types.JSON, outputs[0].msg.DataType)
			assert.Equal(t, expected, payload(outputs[0]), name)
		}
	})

	t.Run("Stored", func(t *testing.T) {
		require.Nil(t, h.global().Set("TestConfig_number", float64(42), ""))
		node := h.node("s1", types.Configuration{"value": "number"})
		outputs := h.send(node, "s1", test.Msg{MsgType: "TEST", Data: `{"payload":1}`})
		require.Len(t, outputs, 1)
		assert.Equal(t, float64(42), payload(outputs[0]))
	})

	t.Run("MsgProperty", func(t *testing.T) {
		node := h.node("s1", types.Configuration{"value": "string", "msgProperty": "payload.text"})
		outputs := h.send(node, "s1", test.Msg{MsgType: "TEST", Data: `{"payload":{"other":1},"topic":"t"}`})
		require.Len(t, outputs, 1)
		props := outputs[0].msg.Properties()
		assert.Equal(t, map[string]interface{}{"other": float64(1), "text": "my string default value"}, props["payload"])
		assert.Equal(t, "t", props["topic"])
	})

	t.Run("KeepsMsgIdentity", func(t *testing.T) {
		node := h.node("s1", types.Configuration{"value": "boolean"})
		ctx := test.NewRuleContextFull(h.config, "s1", h.chainCtx, func(msg types.RuleMsg, relationType string, err error) {
			assert.Equal(t, "id-1", msg.Id)
			assert.Equal(t, "v", msg.Metadata.GetValue("k"))
		})
		msg := types.RuleMsg{Id: "id-1", Type: "TEST", DataType: types.JSON, Data: "{}", Metadata: types.BuildMetadata(map[string]string{"k": "v"})}
		node.OnMsg(ctx, msg)
	})
}

func TestPersistentValueNodeWrite(t *testing.T) {
	h := newHarness(t)
	node := h.node("s1", types.Configuration{"value": "number", "command": "write"})

	outputs := h.send(node, "s1", test.Msg{MsgType: "TEST", Data: `{"payload":5}`})
	require.Len(t, outputs, 2)
	assert.Equal(t, types.Success, outputs[0].relation)
	assert.Equal(t, types.OnChange, outputs[1].relation)
	assert.Equal(t, float64(5), payload(outputs[0]))
	assert.Equal(t, float64(5), payload(outputs[1]))
	stored, ok, err := h.global().Get("TestConfig_number", "")
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(5), stored)

	t.Run("Unchanged", func(t *testing.T) {
		outputs := h.send(node, "s1", test.Msg{MsgType: "TEST", Data: `{"payload":"5"}`})
		require.Len(t, outputs, 1)
		assert.Equal(t, types.Success, outputs[0].relation)
		assert.Equal(t, float64(5), payload(outputs[0]))
	})

	t.Run("StringUnchanged", func(t *testing.T) {
		require.Nil(t, h.global().Set("TestConfig_string", "Not changed", ""))
		node := h.node("s2", types.Configuration{"value": "string", "command": "write"})
		outputs := h.send(node, "s2", test.Msg{MsgType: "TEST", Data: "Not changed", DataType: types.TEXT})
		require.Len(t, outputs, 1)
		assert.Equal(t, "Not changed", payload(outputs[0]))
	})

	t.Run("FlowScope", func(t *testing.T) {
		node := h.node("s3", types.Configuration{"value": "flowNumber", "command": "write"})
		outputs := h.send(node, "s3", test.Msg{MsgType: "TEST", Data: `{"payload":7}`})
		require.Len(t, outputs, 2)
		flow := h.config.ContextStorage.Scope(context.Background(), contextstore.FlowNamespace(chainId))
		stored, ok, err := flow.Get("TestConfig_flowNumber", "")
		require.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, float64(7), stored)
		_, ok, _ = h.global().Get("TestConfig_flowNumber", "")
		assert.False(t, ok)
	})

	t.Run("NodeScope", func(t *testing.T) {
		node := h.node("s4", types.Configuration{"value": "nodeString", "command": "write"})
		h.send(node, "s4", test.Msg{MsgType: "TEST", Data: `{"payload":"x"}`})
		store := h.config.ContextStorage.Scope(context.Background(), contextstore.NodeNamespace(chainId, "s4"))
		stored, ok, err := store.Get("TestConfig_nodeString", "")
		require.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, "x", stored)
	})

	t.Run("MissingProperty", func(t *testing.T) {
		node := h.node("s5", types.Configuration{"value": "number", "command": "write", "msgProperty": "temperature"})
		outputs := h.send(node, "s5", test.Msg{MsgType: "TEST", Data: `{"payload":9}`})
		require.Len(t, outputs, 1)
		assert.Equal(t, float64(5), outputs[0].msg.Properties()["temperature"])
		assert.True(t, h.logger.HasWarning("Missing message property temperature"))
	})
}

func TestPersistentValueNodeCollect(t *testing.T) {
	h := newHarness(t)
	first := h.node("s1", types.Configuration{"value": "boolean", "collectValues": true})
	second := h.node("s2", types.Configuration{"value": "number", "collectValues": true})

	outputs := h.send(first, "s1", test.Msg{MsgType: "TEST", Data: `{"payload":"x"}`})
	require.Len(t, outputs, 1)
	outputs = h.send(second, "s2", test.Msg{MsgType: "TEST", Data: outputs[0].msg.Data})
	require.Len(t, outputs, 1)

	assert.Equal(t, map[string]interface{}{
		"TestConfig_boolean": true,
		"TestConfig_number":  float64(23),
	}, outputs[0].msg.Properties()["collectedValues"])
}

func TestPersistentValueNodeBlockIf(t *testing.T) {
	h := newHarness(t)

	t.Run("Equal", func(t *testing.T) {
		node := h.node("s1", types.Configuration{"value": "number", "blockIfEnable": true, "blockIfRule": "eq", "blockIfCompareValue": 23})
		assert.Len(t, h.send(node, "s1", test.Msg{MsgType: "TEST", Data: "{}"}), 0)
	})

	t.Run("NotEqual", func(t *testing.T) {
		node := h.node("s2", types.Configuration{"value": "number", "blockIfEnable": true, "blockIfRule": "neq", "blockIfCompareValue": 23})
		assert.Len(t, h.send(node, "s2", test.Msg{MsgType: "TEST", Data: "{}"}), 1)
		node = h.node("s3", types.Configuration{"value": "number", "blockIfEnable": true, "blockIfRule": "neq", "blockIfCompareValue": 24})
		assert.Len(t, h.send(node, "s3", test.Msg{MsgType: "TEST", Data: "{}"}), 0)
	})

	t.Run("UnknownRule", func(t *testing.T) {
		node := h.node("s4", types.Configuration{"value": "number", "blockIfEnable": true, "blockIfRule": "gt", "blockIfCompareValue": 23})
		assert.Len(t, h.send(node, "s4", test.Msg{MsgType: "TEST", Data: "{}"}), 1)
		assert.True(t, h.logger.HasWarning("Unknown block-if rule"))
		assert.True(t, h.logger.HasWarning("[s4]"))
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		node := h.node("s5", types.Configuration{"value": "boolean", "blockIfEnable": true, "blockIfRule": "eq", "blockIfCompareValue": 2305})
		assert.Len(t, h.send(node, "s5", test.Msg{MsgType: "TEST", Data: "{}"}), 1)
		assert.True(t, h.logger.HasWarning("Type mismatch of block flow values"))
	})

	t.Run("CompareValueMismatch", func(t *testing.T) {
		require.Nil(t, h.global().Set("TestConfig_boolean", true, ""))
		node := h.node("s6", types.Configuration{"value": "boolean", "blockIfEnable": true, "blockIfRule": "eq", "blockIfCompareValue": 2305})
		outputs := h.send(node, "s6", test.Msg{MsgType: "TEST", Data: "{}"})
		require.Len(t, outputs, 1)
		assert.Equal(t, true, payload(outputs[0]))

		node = h.node("s7", types.Configuration{"value": "number", "blockIfEnable": true, "blockIfRule": "eq", "blockIfCompareValue": "abc"})
		outputs = h.send(node, "s7", test.Msg{MsgType: "TEST", Data: "{}"})
		require.Len(t, outputs, 1)
		assert.Equal(t, float64(23), payload(outputs[0]))
		assert.True(t, h.logger.HasWarning("Type mismatch of block flow values"))
		assert.True(t, h.logger.HasWarning("[s7]"))
	})
}

func TestPersistentValueNodeStorage(t *testing.T) {
	h := newHarness(t)

	t.Run("NotFound", func(t *testing.T) {
		node := h.node("s1", types.Configuration{"value": "missingStore"})
		outputs := h.send(node, "s1", test.Msg{MsgType: "TEST", Data: "{}"})
		require.Len(t, outputs, 1)
		assert.Equal(t, types.Failure, outputs[0].relation)
		assert.True(t, errors.Is(outputs[0].err, types.ErrStorageNotFound))
	})

	t.Run("Override", func(t *testing.T) {
		node := h.node("s2", types.Configuration{"value": "missingStore", "storage": "default", "command": "write"})
		outputs := h.send(node, "s2", test.Msg{MsgType: "TEST", Data: `{"payload":3}`})
		require.Len(t, outputs, 2)
		stored, ok, err := h.global().Get("TestConfig_missingStore", "")
		require.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, float64(3), stored)
	})
}
