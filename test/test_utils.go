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


package test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rulego/pvflow/api/types"
)

// CreateAndInitNode 创建并初始化一个节点实例
func CreateAndInitNode(targetNodeType string, initConfig types.Configuration, registry *types.SafeComponentSlice) (types.Node, error) {
	return CreateAndInitNodeWithConfig(types.NewConfig(), targetNodeType, initConfig, registry)
}

// CreateAndInitNodeWithConfig 使用指定的规则引擎配置创建并初始化一个节点实例
func CreateAndInitNodeWithConfig(ruleConfig types.Config, targetNodeType string, initConfig types.Configuration, registry *types.SafeComponentSlice) (types.Node, error) {
	for _, component := range registry.Components() {
		if component.Type() == targetNodeType {
			node := component.New()
			return node, node.Init(ruleConfig, initConfig)
		}
	}
	return nil, fmt.Errorf("%s: %w", targetNodeType, types.ErrComponentNotFound)
}

// Msg 测试消息
type Msg struct {
	MetaData types.Metadata
	DataType types.DataType
	MsgType  string
	Data     string
}

// NodeOnMsg 依次同步发送消息
func NodeOnMsg(t *testing.T, node types.Node, msgList []Msg, callback func(msg types.RuleMsg, relationType string, err error)) {
	NodeOnMsgWithContext(t, node, NewRuleContext(types.NewConfig(), callback), msgList)
}

// NodeOnMsgWithContext 使用指定上下文依次同步发送消息
func NodeOnMsgWithContext(t *testing.T, node types.Node, ctx types.RuleContext, msgList []Msg) {
	t.Helper()
	for _, item := range msgList {
		dataType := types.JSON
		if item.DataType != "" {
			dataType = item.DataType
		}
		metadata := item.MetaData
		if metadata == nil {
			metadata = types.NewMetadata()
		}
		node.OnMsg(ctx, types.NewMsg(0, item.MsgType, dataType, metadata, item.Data))
	}
}

// UpperNode A plugin that converts the message data to uppercase
type UpperNode struct{}

func (n *UpperNode) Type() string {
	return "test/upper"
}

func (n *UpperNode) New() types.Node {
	return &UpperNode{}
}

func (n *UpperNode) Init(_ types.Config, _ types.Configuration) error {
	return nil
}

func (n *UpperNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	msg.Data = strings.ToUpper(msg.Data)
	msg.Metadata.PutValue("upper", "true")
	ctx.TellSuccess(msg)
}

func (n *UpperNode) Destroy() {
}

// FailNode always routes to Failure
type FailNode struct{}

func (n *FailNode) Type() string {
	return "test/fail"
}

func (n *FailNode) New() types.Node {
	return &FailNode{}
}

func (n *FailNode) Init(_ types.Config, _ types.Configuration) error {
	return nil
}

func (n *FailNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellFailure(msg, fmt.Errorf("fail node %s", ctx.GetSelfId()))
}

func (n *FailNode) Destroy() {
}
