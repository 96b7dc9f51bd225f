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

package pvflow

import (
	"context"
	"testing"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/contextstore"
	"github.com/rulego/pvflow/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ruleFile = `
{
  "ruleChain": {"id": "sensors"},
  "metadata": {
    "nodes": [
      {"id": "s1", "type": "persistentValue",
       "configuration": {"valuesConfig": "cfg", "value": "temperature", "command": "write"}},
      {"id": "s2", "type": "exprFilter", "configuration": {"expr": "msg.payload > 30"}},
      {"id": "cfg", "type": "persistentValuesConfig",
       "configuration": {"name": "Sensors", "values": [
         {"name": "temperature", "datatype": "num", "default": 0, "scope": "global"}
       ]}}
    ],
    "connections": [
      {"fromId": "s1", "toId": "s2", "type": "OnChange"}
    ]
  }
}`

func TestDefaultPool(t *testing.T) {
	logger := &test.CaptureLogger{}
	storage := contextstore.NewDefaultManager()
	config := NewConfig(types.WithContextStorage(storage), types.WithLogger(logger))
	ruleEngine, err := New("", []byte(ruleFile), WithConfig(config))
	require.NoError(t, err)
	defer Del("sensors")

	got, ok := Get("sensors")
	require.True(t, ok)
	assert.Same(t, ruleEngine, got)

	msg := types.NewMsg(0, "TELEMETRY", types.JSON, types.NewMetadata(), `{"payload":"35"}`)
	result := ruleEngine.OnMsgAndCollect(msg)
	require.Len(t, result, 2)
	assert.Equal(t, types.Success, result[0].RelationType)
	assert.Equal(t, types.True, result[1].RelationType)
	assert.Equal(t, msg.Id, result[1].Msg.Id)

	OnMsg(types.NewMsg(0, "TELEMETRY", types.JSON, types.NewMetadata(), `{"payload":20}`))
	v, ok, err := storage.Scope(context.Background(), contextstore.GlobalNamespace).Get("Sensors_temperature", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(20), v)

	Del("sensors")
	_, ok = Get("sensors")
	assert.False(t, ok)
	assert.False(t, ruleEngine.Initialized())
}

func TestRegistry(t *testing.T) {
	_, err := Registry.NewNode("persistentValue")
	assert.NoError(t, err)
	assert.True(t, Registry.IsConfigNode("persistentValuesConfig"))
}
