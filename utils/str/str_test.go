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

package str

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecuteTemplate(t *testing.T) {
	dict := map[string]interface{}{
		"metadata": map[string]interface{}{"deviceId": "d1"},
		"msg":      map[string]interface{}{"payload": 23.0},
	}
	assert.Equal(t, "http://host/d1/23", ExecuteTemplate("http://host/${metadata.deviceId}/${ msg.payload }", dict))
	assert.Equal(t, "keep ${missing}", ExecuteTemplate("keep ${missing}", dict))
}

func TestSprintfDict(t *testing.T) {
	assert.Equal(t, "Hello,Alice", SprintfDict("Hello,${name}", map[string]string{"name": "Alice"}))
	assert.Equal(t, "${global.x}", SprintfDict("${global.x}", map[string]string{}))
	assert.Equal(t, "redis:6379", SprintfDict("${global.addr}", map[string]string{"global.addr": "redis:6379"}))
}

func TestCheckHasVar(t *testing.T) {
	assert.True(t, CheckHasVar("${a}"))
	assert.False(t, CheckHasVar("a"))
}

func TestRandomStr(t *testing.T) {
	assert.Equal(t, 8, len(RandomStr(8)))
}

func TestConvertDollarPlaceholder(t *testing.T) {
	assert.Equal(t, "select v from t where k=$1 and n=$2", ConvertDollarPlaceholder("select v from t where k=? and n=?", "postgres"))
	assert.Equal(t, "select v from t where k=?", ConvertDollarPlaceholder("select v from t where k=?", "mysql"))
}
