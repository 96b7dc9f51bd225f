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

package base

import (
	"fmt"
	"testing"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/test"
	"github.com/stretchr/testify/assert"
)

type printfLogger struct {
	lines []string
}

func (l *printfLogger) Printf(format string, v ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func TestConfigurationKeys(t *testing.T) {
	chainCtx := test.NewChainCtx("chain01", types.NewConfig())
	self := types.RuleNode{Id: "s1", Type: "persistentValue"}
	configuration := types.Configuration{
		types.NodeConfigurationKeyChainCtx:       chainCtx,
		types.NodeConfigurationKeySelfDefinition: self,
	}
	assert.Equal(t, chainCtx, NodeUtils.GetChainCtx(configuration))
	assert.Equal(t, self, NodeUtils.GetSelfDefinition(configuration))

	assert.Nil(t, NodeUtils.GetChainCtx(types.Configuration{}))
	assert.Equal(t, types.RuleNode{}, NodeUtils.GetSelfDefinition(types.Configuration{types.NodeConfigurationKeySelfDefinition: "x"}))
}

func TestGetEnv(t *testing.T) {
	msg := types.NewMsg(10, "TELEMETRY", types.JSON, types.BuildMetadata(map[string]string{"deviceId": "d1"}), `{"payload":21}`)
	env := NodeUtils.GetEnv(nil, msg)
	assert.Equal(t, map[string]interface{}{"payload": float64(21)}, env[types.MsgKey])
	assert.Equal(t, map[string]string{"deviceId": "d1"}, env[types.MetadataKey])
	assert.Equal(t, "TELEMETRY", env[types.MsgTypeKey])
	assert.Equal(t, int64(10), env[types.TsKey])

	text := types.NewMsg(0, "TELEMETRY", types.TEXT, nil, "on")
	assert.Equal(t, "on", NodeUtils.PrepareJsData(text))
	broken := types.NewMsg(0, "TELEMETRY", types.JSON, nil, "{")
	assert.Equal(t, "{", NodeUtils.PrepareJsData(broken))
}

func TestWarn(t *testing.T) {
	logger := &test.CaptureLogger{}
	config := types.NewConfig(types.WithLogger(logger))
	ctx := test.NewRuleContextFull(config, "s1", nil, func(msg types.RuleMsg, relationType string, err error) {})
	NodeUtils.Warn(ctx, "Unknown block-if rule %s", "gt")
	assert.Equal(t, []string{"[s1] Unknown block-if rule gt"}, logger.Warnings())

	NodeUtils.Debug(ctx, "debug %d", 1)
	assert.Contains(t, logger.Lines(), "DEBUG debug 1")

	plain := &printfLogger{}
	NodeUtils.WarnFunc(types.NewConfig(types.WithLogger(plain)), "s2")("Type mismatch")
	assert.Equal(t, []string{"WARN [s2] Type mismatch"}, plain.lines)

	// 没有日志实现时忽略
	NodeUtils.WarnFunc(types.Config{}, "s3")("ignored")
}
