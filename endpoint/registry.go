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

package endpoint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/pvflow/api/types"
	endpointApi "github.com/rulego/pvflow/api/types/endpoint"
	"github.com/rulego/pvflow/endpoint/mqtt"
	"github.com/rulego/pvflow/endpoint/rest"
	"github.com/rulego/pvflow/endpoint/schedule"
	"github.com/rulego/pvflow/endpoint/websocket"
	"github.com/rulego/pvflow/utils/maps"
)

// init registers the available endpoint components with the Registry.
func init() {
	_ = Registry.Register(&mqtt.Endpoint{})
	_ = Registry.Register(&rest.Endpoint{})
	_ = Registry.Register(&websocket.Endpoint{})
	_ = Registry.Register(&schedule.Endpoint{})
}

// Registry is the default registry for endpoint components.
var Registry = new(ComponentRegistry)

// ComponentRegistry is a registry for endpoint components.
type ComponentRegistry struct {
	// components holds the registered endpoint components.
	components map[string]endpointApi.Endpoint
	sync.RWMutex
}

// Register adds a new endpoint component to the registry.
func (r *ComponentRegistry) Register(component endpointApi.Endpoint) error {
	r.Lock()
	defer r.Unlock()
	if r.components == nil {
		r.components = make(map[string]endpointApi.Endpoint)
	}
	if _, ok := r.components[component.Type()]; ok {
		return fmt.Errorf("type=%s: %w", component.Type(), types.ErrComponentExists)
	}
	r.components[component.Type()] = component
	return nil
}

// Unregister removes an endpoint component from the registry.
func (r *ComponentRegistry) Unregister(componentType string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.components[componentType]; !ok {
		return fmt.Errorf("type=%s: %w", componentType, types.ErrComponentNotFound)
	}
	delete(r.components, componentType)
	return nil
}

// Types 已注册的端点类型，已排序
func (r *ComponentRegistry) Types() []string {
	r.RLock()
	defer r.RUnlock()
	result := make([]string, 0, len(r.components))
	for k := range r.components {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// New creates and initializes a new endpoint instance of componentType.
// The configuration can be either types.Configuration or the corresponding Config struct of the endpoint.
func (r *ComponentRegistry) New(componentType string, dispatcher endpointApi.Dispatcher, ruleConfig types.Config, configuration interface{}) (endpointApi.Endpoint, error) {
	r.RLock()
	component, ok := r.components[componentType]
	r.RUnlock()
	if !ok {
		return nil, fmt.Errorf("type=%s: %w", componentType, types.ErrComponentNotFound)
	}
	var config = make(types.Configuration)
	if configuration != nil {
		if c, ok := configuration.(types.Configuration); ok {
			config = c
		} else if err := maps.Map2Struct(configuration, &config); err != nil {
			return nil, err
		}
	}
	//创建新的实例
	newEndpoint := component.New()
	if err := newEndpoint.Init(dispatcher, ruleConfig, config); err != nil {
		return nil, fmt.Errorf("init endpoint %s: %w", componentType, err)
	}
	return newEndpoint, nil
}
