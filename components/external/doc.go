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


// Package external provides components that call external systems from a
// rule chain.
//
// Available Components:
// 可用组件：
//   - RestApiCallNode: HTTP/REST API client, e.g. to notify a service when a
//     persistent value changes
//     HTTP/REST API 客户端，例如持久值变化时通知外部服务
//
// Example:
//
//	{
//	  "id": "notify",
//	  "type": "restApiCall",
//	  "configuration": {
//	    "restEndpointUrlPattern": "http://127.0.0.1:9090/api/${metadata.deviceId}",
//	    "requestMethod": "POST"
//	  }
//	}
package external

import "github.com/rulego/pvflow/api/types"

// Registry 外部组件注册表
var Registry = &types.SafeComponentSlice{}
