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


package engine

import (
	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/utils/json"
)

// JsonParser Json
type JsonParser struct {
}

var _ types.Parser = (*JsonParser)(nil)

// DecodeRuleChain 通过json解析规则链结构体
func (p *JsonParser) DecodeRuleChain(rootRuleChain []byte) (types.RuleChain, error) {
	var def types.RuleChain
	err := json.Unmarshal(rootRuleChain, &def)
	return def, err
}

// DecodeRuleNode 通过json解析节点结构体
func (p *JsonParser) DecodeRuleNode(rootRuleChain []byte) (types.RuleNode, error) {
	var def types.RuleNode
	err := json.Unmarshal(rootRuleChain, &def)
	return def, err
}

// EncodeRuleChain 格式化输出规则链DSL
func (p *JsonParser) EncodeRuleChain(def interface{}) ([]byte, error) {
	return json.MarshalIndent(def)
}

// EncodeRuleNode 格式化输出节点DSL
func (p *JsonParser) EncodeRuleNode(def interface{}) ([]byte, error) {
	return json.MarshalIndent(def)
}
