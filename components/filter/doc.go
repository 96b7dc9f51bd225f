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


// Package filter provides message filtering components for rule chains.
//
// - ExprFilter: Filters messages using an expr-lang boolean expression
// - JsFilter: Filters messages using a JavaScript function body
//
// Both route the message to `True` or `False` and to `Failure` when the
// expression or script fails. A typical use is to act only on the messages a
// persistentValue node passes on its `OnChange` relation:
//
//	{
//	  "id": "node1",
//	  "type": "exprFilter",
//	  "name": "too hot",
//	  "configuration": {
//	    "expr": "msg.payload > 50"
//	  }
//	}
package filter

import "github.com/rulego/pvflow/api/types"

// Registry 过滤组件注册表
var Registry = &types.SafeComponentSlice{}
