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


// Package persistent provides the persistent value components: a values
// config node declaring named, typed values and a value node reading or
// writing one of them from the node, flow or global context store.
//
//   - persistentValuesConfig: declares {name, datatype, default, scope, storage}
//   - persistentValue: reads or writes a declared value, detects changes,
//     blocks the flow on a compare rule and collects values across nodes
//
// Example:
//
//	{
//	  "id": "cfg",
//	  "type": "persistentValuesConfig",
//	  "configuration": {
//	    "name": "TestConfig",
//	    "values": [
//	      {"name": "number", "datatype": "num", "default": 23, "scope": "global"}
//	    ]
//	  }
//	},
//	{
//	  "id": "s1",
//	  "type": "persistentValue",
//	  "configuration": {
//	    "valuesConfig": "cfg",
//	    "value": "number",
//	    "command": "write",
//	    "msgProperty": "payload.temperature"
//	  }
//	}
//
// The primary output uses the `Success` relation, the changed value output
// uses the `OnChange` relation and store failures use `Failure`.
package persistent

import "github.com/rulego/pvflow/api/types"

// Registry 持久值组件注册表
var Registry = &types.SafeComponentSlice{}
