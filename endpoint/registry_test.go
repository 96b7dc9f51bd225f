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

package endpoint_test

import (
	"errors"
	"testing"

	"github.com/rulego/pvflow/api/types"
	endpointApi "github.com/rulego/pvflow/api/types/endpoint"
	"github.com/rulego/pvflow/endpoint"
	"github.com/rulego/pvflow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEndpoint struct {
	configuration types.Configuration
	dispatcher    endpointApi.Dispatcher
	failInit      bool
}

func (x *testEndpoint) New() endpointApi.Endpoint {
	return &testEndpoint{}
}

func (x *testEndpoint) Type() string {
	return "test"
}

func (x *testEndpoint) Id() string {
	return "test01"
}

func (x *testEndpoint) Init(dispatcher endpointApi.Dispatcher, _ types.Config, configuration types.Configuration) error {
	if configuration["fail"] == true {
		return errors.New("init fail")
	}
	x.dispatcher = dispatcher
	x.configuration = configuration
	return nil
}

func (x *testEndpoint) SetOnEvent(_ endpointApi.OnEvent) {
}

func (x *testEndpoint) Start() error {
	return nil
}

func (x *testEndpoint) Destroy() {
}

func TestRegistry(t *testing.T) {
	config := engine.NewConfig()
	dispatcher := endpoint.NewDispatcher(engine.NewPool(), config)

	require.NoError(t, endpoint.Registry.Register(&testEndpoint{}))
	defer func() {
		_ = endpoint.Registry.Unregister("test")
	}()
	err := endpoint.Registry.Register(&testEndpoint{})
	assert.True(t, errors.Is(err, types.ErrComponentExists))
	assert.Equal(t, []string{"mqtt", "rest", "schedule", "test", "websocket"}, endpoint.Registry.Types())

	ep, err := endpoint.Registry.New("test", dispatcher, config, nil)
	require.NoError(t, err)
	assert.Empty(t, ep.(*testEndpoint).configuration)
	assert.Same(t, dispatcher, ep.(*testEndpoint).dispatcher)

	ep, err = endpoint.Registry.New("test", dispatcher, config, types.Configuration{"name": "lala"})
	require.NoError(t, err)
	assert.Equal(t, "lala", ep.(*testEndpoint).configuration["name"])

	ep, err = endpoint.Registry.New("test", dispatcher, config, struct {
		Name string
	}{Name: "lala"})
	require.NoError(t, err)
	assert.Equal(t, "lala", ep.(*testEndpoint).configuration["Name"])

	_, err = endpoint.Registry.New("test", dispatcher, config, types.Configuration{"fail": true})
	assert.EqualError(t, err, "init endpoint test: init fail")

	_, err = endpoint.Registry.New("unknown", dispatcher, config, nil)
	assert.True(t, errors.Is(err, types.ErrComponentNotFound))

	require.NoError(t, endpoint.Registry.Unregister("test"))
	err = endpoint.Registry.Unregister("test")
	assert.True(t, errors.Is(err, types.ErrComponentNotFound))
}
