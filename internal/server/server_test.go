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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/config"
	"github.com/rulego/pvflow/contextstore"
	"github.com/rulego/pvflow/endpoint/rest"
	"github.com/rulego/pvflow/utils/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ruleChain = `
{
  "ruleChain": {"id": "sensors"},
  "metadata": {
    "nodes": [
      {"id": "s1", "type": "persistentValue", "debugMode": true,
       "configuration": {"valuesConfig": "cfg", "value": "temperature", "command": "write"}},
      {"id": "cfg", "type": "persistentValuesConfig",
       "configuration": {"name": "${global.configName}", "values": [{"name": "temperature", "datatype": "num", "scope": "global"}]}}
    ]
  }
}`

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sensors.json"), []byte(ruleChain), 0644))
	c, err := config.Parse([]byte(`
server = 127.0.0.1:0
rules_dir = `+dir+`
debug = true

[global]
configName = Sensors

[storage]
default = file

[storage.file]
module = localfilesystem
dir = `+t.TempDir()+`
`), nil)
	require.NoError(t, err)
	return c
}

func TestServer(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(testConfig(t), logs.NewLogger(&buf, "debug", false))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Nil(t, s.Mqtt)
	assert.Equal(t, []string{"sensors"}, s.Pool.Ids())

	resp, err := http.Post("http://"+s.Rest.Addr()+"/api/v1/rules/sensors/msg/TELEMETRY", rest.JsonContextType, strings.NewReader(`{"payload":21}`))
	require.NoError(t, err)
	var result []types.WrapperMsg
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	_ = resp.Body.Close()
	require.Len(t, result, 2)
	assert.Equal(t, types.OnChange, result[1].RelationType)

	v, ok, err := s.Storage.Scope(context.Background(), contextstore.GlobalNamespace).Get("Sensors_temperature", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 21, v)
	assert.Equal(t, "file", s.Storage.DefaultName())
	assert.Contains(t, buf.String(), "nodeId=s1")

	require.NoError(t, s.Stop())
}

func TestNewErrors(t *testing.T) {
	logger := logs.NewLogger(&bytes.Buffer{}, "info", false)

	c := testConfig(t)
	c.RulesDir = filepath.Join(t.TempDir(), "missing")
	_, err := New(c, logger)
	assert.Error(t, err)

	c = testConfig(t)
	c.Storage = contextstore.Settings{Default: "redis"}
	_, err = New(c, logger)
	assert.ErrorIs(t, err, types.ErrStorageNotFound)
}
