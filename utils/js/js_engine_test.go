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


package js

import (
	"strings"
	"testing"
	"time"

	"github.com/rulego/pvflow/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	config := types.NewConfig()
	config.Properties.PutValue("limit", "50")
	jsEngine, err := NewGojaJsEngine(config, `function Filter(msg, metadata, msgType) { return msg.temperature > Number(global.limit) && metadata.k === 'v'; }`, nil)
	require.Nil(t, err)

	out, err := jsEngine.Execute("Filter", map[string]interface{}{"temperature": 60}, map[string]string{"k": "v"}, "TEST")
	require.Nil(t, err)
	assert.Equal(t, true, out)

	out, err = jsEngine.Execute("Filter", map[string]interface{}{"temperature": 10}, map[string]string{"k": "v"}, "TEST")
	require.Nil(t, err)
	assert.Equal(t, false, out)
}

func TestFromVars(t *testing.T) {
	jsEngine, err := NewGojaJsEngine(types.NewConfig(), `function Add(a) { return a + offset; }`, map[string]interface{}{"offset": 2})
	require.Nil(t, err)
	out, err := jsEngine.Execute("Add", 1)
	require.Nil(t, err)
	assert.Equal(t, int64(3), out)
}

func TestCompileError(t *testing.T) {
	_, err := NewGojaJsEngine(types.NewConfig(), `function Filter( { `, nil)
	assert.NotNil(t, err)
}

func TestNotFunction(t *testing.T) {
	jsEngine, err := NewGojaJsEngine(types.NewConfig(), `var Filter = 1;`, nil)
	require.Nil(t, err)
	_, err = jsEngine.Execute("Filter")
	require.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "is not a function"))
}

func TestTimeout(t *testing.T) {
	config := types.NewConfig(types.WithScriptMaxExecutionTime(100 * time.Millisecond))
	jsEngine, err := NewGojaJsEngine(config, `function Loop() { while(true) {} } function Ok() { return 1; }`, nil)
	require.Nil(t, err)
	_, err = jsEngine.Execute("Loop")
	require.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "execution timeout"))

	out, err := jsEngine.Execute("Ok")
	require.Nil(t, err)
	assert.Equal(t, int64(1), out)
}
