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

package schedule_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/contextstore"
	"github.com/rulego/pvflow/endpoint"
	"github.com/rulego/pvflow/endpoint/schedule"
	"github.com/rulego/pvflow/engine"
	"github.com/rulego/pvflow/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ruleChain = `
{
  "ruleChain": {"id": "counter"},
  "metadata": {
    "nodes": [
      {"id": "s1", "type": "persistentValue",
       "configuration": {"valuesConfig": "cfg", "value": "lastTick", "command": "write", "msgProperty": "tick"}},
      {"id": "cfg", "type": "persistentValuesConfig",
       "configuration": {"name": "Clock", "values": [{"name": "lastTick", "datatype": "str", "scope": "flow"}]}}
    ]
  }
}`

func newSchedule(t *testing.T, configuration types.Configuration) (*schedule.Schedule, types.Config) {
	logger := &test.CaptureLogger{}
	config := engine.NewConfig(types.WithContextStorage(contextstore.NewDefaultManager()), types.WithLogger(logger))
	pool := engine.NewPool()
	_, err := pool.New("", []byte(ruleChain), engine.WithConfig(config))
	require.NoError(t, err)
	t.Cleanup(pool.Stop)
	ep, err := endpoint.Registry.New(schedule.Type, endpoint.NewDispatcher(pool, config), config, configuration)
	require.NoError(t, err)
	return ep.(*schedule.Schedule), config
}

func lastTick(t *testing.T, config types.Config) (interface{}, bool) {
	v, ok, err := config.ContextStorage.Scope(context.Background(), contextstore.FlowNamespace("counter")).Get("Clock_lastTick", "")
	require.NoError(t, err)
	return v, ok
}

func TestScheduleJobs(t *testing.T) {
	ep, config := newSchedule(t, types.Configuration{
		"jobs": []interface{}{
			map[string]interface{}{"cron": "@every 1s", "chainId": "counter", "data": `{"tick":"a"}`},
		},
	})
	assert.Equal(t, 1, ep.Jobs())
	require.NoError(t, ep.Start())
	defer ep.Destroy()

	assert.Eventually(t, func() bool {
		_, ok := lastTick(t, config)
		return ok
	}, 3*time.Second, 50*time.Millisecond)
	v, _ := lastTick(t, config)
	assert.Equal(t, "a", v)

	id, err := ep.AddJob(schedule.Job{Cron: "0 0 0 1 1 *", ChainId: "counter"})
	require.NoError(t, err)
	assert.Equal(t, 2, ep.Jobs())
	require.NoError(t, ep.RemoveJob(id))
	assert.Equal(t, 1, ep.Jobs())
	assert.Error(t, ep.RemoveJob("x"))
}

func TestScheduleTrigger(t *testing.T) {
	ep, config := newSchedule(t, nil)
	ep.Trigger(schedule.Job{ChainId: "counter", Data: `{"tick":"manual"}`, Metadata: map[string]string{"k": "v"}})
	v, ok := lastTick(t, config)
	assert.True(t, ok)
	assert.Equal(t, "manual", v)

	ep.Trigger(schedule.Job{ChainId: "nope"})
	assert.Contains(t, strings.Join(config.Logger.(*test.CaptureLogger).Lines(), "\n"), "rule chain not found")

	ep.Destroy()
	assert.Equal(t, 0, ep.Jobs())
	ep.Trigger(schedule.Job{ChainId: "counter", Data: `{"tick":"late"}`})
	v, _ = lastTick(t, config)
	assert.Equal(t, "manual", v)
}

func TestScheduleConfigErrors(t *testing.T) {
	_, config := newSchedule(t, nil)
	dispatcher := endpoint.NewDispatcher(engine.NewPool(), config)
	_, err := endpoint.Registry.New(schedule.Type, dispatcher, config, types.Configuration{
		"jobs": []interface{}{map[string]interface{}{"cron": "bad cron", "chainId": "counter"}},
	})
	assert.Error(t, err)
	_, err = endpoint.Registry.New(schedule.Type, dispatcher, config, types.Configuration{
		"jobs": []interface{}{map[string]interface{}{"cron": "@every 1s"}},
	})
	assert.Error(t, err)
}

func TestNewJobMsg(t *testing.T) {
	msg := schedule.NewJobMsg(schedule.Job{Data: "hello"})
	assert.Equal(t, schedule.DefaultMsgType, msg.Type)
	assert.Equal(t, types.TEXT, msg.DataType)
	msg = schedule.NewJobMsg(schedule.Job{MsgType: "T", Data: `{"a":1}`})
	assert.Equal(t, "T", msg.Type)
	assert.Equal(t, types.JSON, msg.DataType)
}
