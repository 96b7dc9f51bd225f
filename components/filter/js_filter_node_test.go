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


package filter

import (
	"testing"

	"github.com/rulego/pvflow/api/types"
	"github.com/rulego/pvflow/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsFilterNode(t *testing.T) {
	var targetNodeType = "jsFilter"

	t.Run("InitNode", func(t *testing.T) {
		_, err := test.CreateAndInitNode(targetNodeType, types.Configuration{
			"jsScript": "return msg.temperature > ;",
		}, Registry)
		assert.NotNil(t, err)
	})

	t.Run("OnMsg", func(t *testing.T) {
		node, err := test.CreateAndInitNode(targetNodeType, types.Configuration{
			"jsScript": "return msg.temperature > 50 && metadata.productType === 'test' && msgType === 'TELEMETRY';",
		}, Registry)
		require.Nil(t, err)
		defer node.Destroy()

		metaData := types.BuildMetadata(map[string]string{"productType": "test"})
		var relations []string
		test.NodeOnMsg(t, node, []test.Msg{
			{MetaData: metaData, MsgType: "TELEMETRY", Data: `{"temperature":60}`},
			{MetaData: metaData, MsgType: "TELEMETRY", Data: `{"temperature":40}`},
			{MetaData: metaData, MsgType: "OTHER", Data: `{"temperature":60}`},
		}, func(msg types.RuleMsg, relationType string, err error) {
			relations = append(relations, relationType)
		})
		assert.Equal(t, []string{types.True, types.False, types.False}, relations)
	})

	t.Run("Failure", func(t *testing.T) {
		node, err := test.CreateAndInitNode(targetNodeType, types.Configuration{
			"jsScript": "return msg.a.b.c;",
		}, Registry)
		require.Nil(t, err)
		var relation string
		var e error
		test.NodeOnMsg(t, node, []test.Msg{{MsgType: "TEST", Data: `{}`}}, func(msg types.RuleMsg, relationType string, err error) {
			relation = relationType
			e = err
		})
		assert.Equal(t, types.Failure, relation)
		assert.NotNil(t, e)
	})
}
