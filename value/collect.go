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


package value

// Collect returns a new mapping holding the entries of acc plus key=v.
// acc is never modified.
func Collect(acc map[string]interface{}, key string, v interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(acc)+1)
	for k, item := range acc {
		result[k] = item
	}
	result[key] = v
	return result
}
