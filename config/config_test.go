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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rulego/pvflow/contextstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var iniData = []byte(`
server = :8080
rules_dir = ./testdata/rules
debug = true
shutdown_timeout = 3s

[global]
configName = Sensors

[mqtt]
enabled = true
server = 127.0.0.1:1883
qos = 1
routes = sensors/+|sensors, alarms/#|alarms

[storage]
default = file

[storage.file]
module = localfilesystem
dir = ./data

[storage.mem]
module = memory

[schedule.b]
cron = @every 10s
chain_id = sensors
data = {"payload":1}

[schedule.a]
cron = */5 * * * * *
chain_id = sensors
msg_type = TICK
`)

func TestParse(t *testing.T) {
	c, err := Parse(iniData, nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server)
	assert.Equal(t, "./testdata/rules", c.RulesDir)
	assert.True(t, c.Debug)
	assert.Equal(t, 3*time.Second, c.ShutdownTimeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "Sensors", c.Global.GetValue("configName"))

	assert.True(t, c.Mqtt.Enabled)
	assert.Equal(t, 1, c.Mqtt.QOS)
	routes, err := c.Mqtt.ParseRoutes()
	require.NoError(t, err)
	assert.Equal(t, []Route{{Topic: "sensors/+", ChainId: "sensors"}, {Topic: "alarms/#", ChainId: "alarms"}}, routes)

	assert.Equal(t, "file", c.Storage.Default)
	assert.Equal(t, contextstore.StoreConfig{
		Module:  contextstore.ModuleLocalFileSystem,
		Options: map[string]interface{}{"dir": "./data"},
	}, c.Storage.Stores["file"])
	assert.Equal(t, contextstore.ModuleMemory, c.Storage.Stores["mem"].Module)

	require.Len(t, c.Jobs, 2)
	assert.Equal(t, Job{Name: "a", Cron: "*/5 * * * * *", ChainId: "sensors", MsgType: "TICK"}, c.Jobs[0])
	assert.Equal(t, `{"payload":1}`, c.Jobs[1].Data)
}

func TestParseDefault(t *testing.T) {
	c, err := Parse(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.Server, c.Server)
	assert.Equal(t, DefaultConfig.RulesDir, c.RulesDir)
	assert.Empty(t, c.Storage.Stores)
	assert.Empty(t, c.Jobs)

	m, err := contextstore.NewManager(c.Storage)
	require.NoError(t, err)
	assert.Equal(t, contextstore.ModuleMemory, m.DefaultName())
}

func TestEnvOverride(t *testing.T) {
	c, err := Parse(iniData, []string{
		"PVFLOW_SERVER=:7070",
		"PVFLOW_MQTT__ENABLED=false",
		"PVFLOW_STORAGE__FILE__DIR=/var/lib/pvflow",
		"PVFLOW_STORAGE__REDIS__MODULE=redis",
		"PVFLOW_STORAGE__REDIS__ADDR=127.0.0.1:6379",
		"OTHER_SERVER=:1",
	})
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.Server)
	assert.False(t, c.Mqtt.Enabled)
	assert.Equal(t, "/var/lib/pvflow", c.Storage.Stores["file"].Options["dir"])
	assert.Equal(t, contextstore.StoreConfig{
		Module:  contextstore.ModuleRedis,
		Options: map[string]interface{}{"addr": "127.0.0.1:6379"},
	}, c.Storage.Stores["redis"])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`
rules_dir =
[mqtt]
enabled = true
qos = 3
routes = sensors
[storage.x]
dir = ./data
[schedule.a]
cron = @every 1s
`), nil)
	require.Error(t, err)
	for _, sub := range []string{"rules_dir", "mqtt.server", "mqtt.qos 3", "mqtt route", "storage x", "schedule a"} {
		assert.Contains(t, err.Error(), sub)
	}
}

func TestLoadFileAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pvflow.ini")
	require.NoError(t, os.WriteFile(file, iniData, 0644))
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PVFLOW_LOG_LEVEL=debug\n"), 0644))
	t.Cleanup(func() {
		_ = os.Unsetenv("PVFLOW_LOG_LEVEL")
	})

	require.NoError(t, LoadEnv("", DefaultEnvFile, envFile))
	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, ":8080", c.Server)
	assert.Equal(t, 1, c.Mqtt.QOS)

	assert.Error(t, LoadEnv(filepath.Join(dir, "missing.env")))
	_, err = Load(filepath.Join(dir, "missing.ini"))
	assert.Error(t, err)
}
