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

// Package str provides ${} template substitution and small string helpers.
package str

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/rulego/pvflow/utils/cast"
	"github.com/rulego/pvflow/utils/maps"
)

// 正则表达式匹配 ${aa} 或 ${aa.bb}
var tplVarRegex = regexp.MustCompile(`\$\{ *([^}]+) *\}`)

// ExecuteTemplate 替换字符串模板中的${}变量
// 支持多级变量如：${msg.payload.temperature}
// 如果没匹配到变量，则保留原样
func ExecuteTemplate(original string, dict map[string]interface{}) string {
	return tplVarRegex.ReplaceAllStringFunc(original, func(s string) string {
		matches := tplVarRegex.FindStringSubmatch(s)
		if len(matches) < 2 {
			return s
		}
		v, ok := maps.Get(dict, strings.TrimSpace(matches[1]))
		if !ok || v == nil {
			return s
		}
		return cast.ToString(v)
	})
}

// SprintfDict 替换字符串模板中的${}变量，不支持多级变量。
// Example: SprintfDict("Hello,${name}",map[string]string{"name":"Alice"}). return "Hello,Alice".
// 如果没匹配到变量，则保留原样
func SprintfDict(original string, dict map[string]string) string {
	return tplVarRegex.ReplaceAllStringFunc(original, func(s string) string {
		matches := tplVarRegex.FindStringSubmatch(s)
		if len(matches) < 2 {
			return s
		}
		if result, ok := dict[strings.TrimSpace(matches[1])]; ok {
			return result
		}
		return s
	})
}

// CheckHasVar 检查字符串是否有占位符
func CheckHasVar(str string) bool {
	return strings.Contains(str, "${") && strings.Contains(str, "}")
}

const randomStrOptions = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomStr 创建指定长度的随机字符
func RandomStr(num int) string {
	var builder strings.Builder
	for i := 0; i < num; i++ {
		builder.WriteByte(randomStrOptions[rand.Intn(len(randomStrOptions))])
	}
	return builder.String()
}

// ConvertDollarPlaceholder 转postgres风格占位符
func ConvertDollarPlaceholder(sql, dbType string) string {
	if dbType != "postgres" {
		return sql
	}
	var builder strings.Builder
	n := 1
	for _, r := range sql {
		if r == '?' {
			builder.WriteString(fmt.Sprintf("$%d", n))
			n++
		} else {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
