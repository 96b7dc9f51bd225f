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

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type User struct {
	Username string
	Age      int
	Address  Address
	Hobbies  []string
	Active   bool
}

type Address struct {
	Detail string
}

func TestMap2Struct(t *testing.T) {
	m := make(map[string]interface{})
	m["userName"] = "lala"
	m["Age"] = float64(5)
	m["Address"] = Address{"test"}
	m["Hobbies"] = []string{"c"}
	m["active"] = "true"
	var user User
	user.Hobbies = []string{"a", "b"}
	require.Nil(t, Map2Struct(m, &user))
	assert.Equal(t, "lala", user.Username)
	assert.Equal(t, 5, user.Age)
	assert.Equal(t, "test", user.Address.Detail)
	assert.Equal(t, []string{"c"}, user.Hobbies)
	assert.True(t, user.Active)

	type Config struct {
		Timeout time.Duration
	}
	var cfg Config
	require.Nil(t, Map2Struct(map[string]interface{}{"Timeout": "5s"}, &cfg))
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	headers := struct {
		Headers map[string]string
		Keys    []string
	}{
		Headers: map[string]string{"Content-Type": "application/json"},
		Keys:    []string{"a", "b"},
	}
	require.Nil(t, Map2Struct(map[string]interface{}{
		"headers": map[string]string{"X-Device": "d1"},
	}, &headers))
	assert.Equal(t, map[string]string{"X-Device": "d1"}, headers.Headers)
	assert.Equal(t, []string{"a", "b"}, headers.Keys)
}

func TestGet(t *testing.T) {
	m := map[string]interface{}{
		"payload": map[string]interface{}{"temperature": 21.5},
		"flat":    "x",
	}
	v, ok := Get(m, "payload.temperature")
	assert.True(t, ok)
	assert.Equal(t, 21.5, v)

	v, ok = Get(m, "flat")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = Get(m, "flat.deeper")
	assert.False(t, ok)
	_, ok = Get(m, "missing")
	assert.False(t, ok)
	_, ok = Get(nil, "missing")
	assert.False(t, ok)
}

func TestSetDoesNotModifyInput(t *testing.T) {
	inner := map[string]interface{}{"temperature": 21.5, "unit": "C"}
	m := map[string]interface{}{"payload": inner, "other": 1}

	out := Set(m, "payload.temperature", 22.0)
	assert.Equal(t, 21.5, inner["temperature"])
	assert.Equal(t, 22.0, out["payload"].(map[string]interface{})["temperature"])
	assert.Equal(t, "C", out["payload"].(map[string]interface{})["unit"])
	assert.Equal(t, 1, out["other"])

	out = Set(m, "other.nested", true)
	assert.Equal(t, map[string]interface{}{"nested": true}, out["other"])
	assert.Equal(t, 1, m["other"])

	out = Set(nil, "payload", "x")
	assert.Equal(t, map[string]interface{}{"payload": "x"}, out)
}
