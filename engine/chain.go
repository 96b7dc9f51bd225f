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
	"fmt"
	"sync"

	"github.com/rulego/pvflow/api/types"
)

// RelationCache caches the outgoing node relationships based on the incoming node.
type RelationCache struct {
	inNodeId     types.RuleNodeId // Identifier of the incoming node
	relationType string           // Type of relationship with the outgoing node
}

// RuleChainCtx defines an instance of a rule chain.
// It initializes all nodes and records the routing relationships between all nodes in the rule chain.
type RuleChainCtx struct {
	Id             types.RuleNodeId                              // Identifier of the rule chain
	SelfDefinition *types.RuleChain                              // Definition of the rule chain
	config         types.Config                                  // Configuration of the rule engine
	nodeIds        []types.RuleNodeId                            // List of node identifiers, in definition order
	nodes          map[types.RuleNodeId]types.NodeCtx            // Map of node contexts
	nodeRoutes     map[types.RuleNodeId][]types.RuleNodeRelation // Map of node routing relationships
	relationCache  map[RelationCache][]types.NodeCtx             // Cache of outgoing node lists based on incoming node and relationship
	sync.RWMutex                                                 // Read/write mutex lock
}

var _ types.ChainCtx = (*RuleChainCtx)(nil)

// configNodeChecker is implemented by registries that can tell config node types apart.
type configNodeChecker interface {
	IsConfigNode(componentType string) bool
}

// InitRuleChainCtx initializes a RuleChainCtx with the given configuration and rule chain definition.
// Config nodes are initialized first so that the other nodes can resolve them in Init.
// Nodes initialized before a failure are destroyed again.
func InitRuleChainCtx(config types.Config, ruleChainDef *types.RuleChain) (*RuleChainCtx, error) {
	var ruleChainCtx = &RuleChainCtx{
		config:         config,
		SelfDefinition: ruleChainDef,
		Id:             types.RuleNodeId{Id: ruleChainDef.RuleChain.ID, Type: types.CHAIN},
		nodes:          make(map[types.RuleNodeId]types.NodeCtx),
		nodeRoutes:     make(map[types.RuleNodeId][]types.RuleNodeRelation),
		relationCache:  make(map[RelationCache][]types.NodeCtx),
	}
	nodeLen := len(ruleChainDef.Metadata.Nodes)
	ruleChainCtx.nodeIds = make([]types.RuleNodeId, nodeLen)
	for index, item := range ruleChainDef.Metadata.Nodes {
		if item.Id == "" {
			item.Id = fmt.Sprintf(defaultNodeIdPrefix+"%d", index)
		}
		ruleNodeId := types.RuleNodeId{Id: item.Id, Type: types.NODE}
		if _, ok := ruleChainCtx.nodes[ruleNodeId]; ok {
			return nil, fmt.Errorf("duplicate node id %s", item.Id)
		}
		ruleChainCtx.nodeIds[index] = ruleNodeId
		// 占位，保证重复ID检查
		ruleChainCtx.nodes[ruleNodeId] = nil
	}
	checker, _ := config.ComponentsRegistry.(configNodeChecker)
	isConfigNode := func(item *types.RuleNode) bool {
		return checker != nil && checker.IsConfigNode(item.Type)
	}
	// Load config nodes first, then the others
	for _, pass := range []bool{true, false} {
		for index, item := range ruleChainDef.Metadata.Nodes {
			if isConfigNode(item) != pass {
				continue
			}
			ruleNodeCtx, err := InitRuleNodeCtx(config, ruleChainCtx, item)
			if err != nil {
				ruleChainCtx.Destroy()
				return nil, fmt.Errorf("init node %s(%s): %w", item.Id, item.Type, err)
			}
			ruleChainCtx.nodes[ruleChainCtx.nodeIds[index]] = ruleNodeCtx
		}
	}
	// Load node relationship information
	for _, item := range ruleChainDef.Metadata.Connections {
		inNodeId := types.RuleNodeId{Id: item.FromId, Type: types.NODE}
		outNodeId := types.RuleNodeId{Id: item.ToId, Type: types.NODE}
		if _, ok := ruleChainCtx.nodes[inNodeId]; !ok {
			ruleChainCtx.Destroy()
			return nil, fmt.Errorf("connection from unknown node %s", item.FromId)
		}
		if _, ok := ruleChainCtx.nodes[outNodeId]; !ok {
			ruleChainCtx.Destroy()
			return nil, fmt.Errorf("connection to unknown node %s", item.ToId)
		}
		ruleChainCtx.nodeRoutes[inNodeId] = append(ruleChainCtx.nodeRoutes[inNodeId], types.RuleNodeRelation{
			InId:         inNodeId,
			OutId:        outNodeId,
			RelationType: item.Type,
		})
	}
	if ruleChainCtx.hasCycle() {
		ruleChainCtx.Destroy()
		return nil, types.ErrCycleDetected
	}
	return ruleChainCtx, nil
}

// hasCycle 深度优先检查节点连接是否成环
func (rc *RuleChainCtx) hasCycle() bool {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[types.RuleNodeId]int, len(rc.nodeIds))
	var visit func(id types.RuleNodeId) bool
	visit = func(id types.RuleNodeId) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, relation := range rc.nodeRoutes[id] {
			if visit(relation.OutId) {
				return true
			}
		}
		state[id] = done
		return false
	}
	for _, id := range rc.nodeIds {
		if visit(id) {
			return true
		}
	}
	return false
}

// Config returns the configuration of the rule chain context
func (rc *RuleChainCtx) Config() types.Config {
	return rc.config
}

// GetNodeById retrieves a node context by its ID
func (rc *RuleChainCtx) GetNodeById(id types.RuleNodeId) (types.NodeCtx, bool) {
	rc.RLock()
	defer rc.RUnlock()
	ruleNodeCtx, ok := rc.nodes[types.RuleNodeId{Id: id.Id, Type: types.NODE}]
	return ruleNodeCtx, ok && ruleNodeCtx != nil
}

// GetConfigNode retrieves an initialized config node by its ID
func (rc *RuleChainCtx) GetConfigNode(id string) (types.ConfigNode, bool) {
	nodeCtx, ok := rc.GetNodeById(types.RuleNodeId{Id: id})
	if !ok {
		return nil, false
	}
	if ruleNodeCtx, ok := nodeCtx.(*RuleNodeCtx); ok {
		configNode, ok := ruleNodeCtx.Node.(types.ConfigNode)
		return configNode, ok
	}
	return nil, false
}

// GetNodeByIndex retrieves a node context by its index
func (rc *RuleChainCtx) GetNodeByIndex(index int) (types.NodeCtx, bool) {
	if index < 0 || index >= len(rc.nodeIds) {
		return nil, false
	}
	return rc.GetNodeById(rc.nodeIds[index])
}

// GetFirstNode retrieves the first node, where the message starts flowing. By default, it's the node with index 0
func (rc *RuleChainCtx) GetFirstNode() (types.NodeCtx, bool) {
	return rc.GetNodeByIndex(rc.SelfDefinition.Metadata.FirstNodeIndex)
}

// GetNodeRoutes retrieves the routes for a given node ID
func (rc *RuleChainCtx) GetNodeRoutes(id types.RuleNodeId) ([]types.RuleNodeRelation, bool) {
	rc.RLock()
	defer rc.RUnlock()
	relations, ok := rc.nodeRoutes[id]
	return relations, ok
}

// GetNextNodes retrieves the child nodes of the current node with the specified relationship
func (rc *RuleChainCtx) GetNextNodes(id types.RuleNodeId, relationType string) ([]types.NodeCtx, bool) {
	cacheKey := RelationCache{inNodeId: id, relationType: relationType}
	rc.RLock()
	nodeCtxList, ok := rc.relationCache[cacheKey]
	rc.RUnlock()
	if ok {
		return nodeCtxList, nodeCtxList != nil
	}

	relations, _ := rc.GetNodeRoutes(id)
	for _, item := range relations {
		if item.RelationType == relationType {
			if nodeCtx, nodeCtxOk := rc.GetNodeById(item.OutId); nodeCtxOk {
				nodeCtxList = append(nodeCtxList, nodeCtx)
			}
		}
	}
	rc.Lock()
	rc.relationCache[cacheKey] = nodeCtxList
	rc.Unlock()
	return nodeCtxList, nodeCtxList != nil
}

// Type returns the component type
func (rc *RuleChainCtx) Type() string {
	return "ruleChain"
}

// New rule chains are created by InitRuleChainCtx
func (rc *RuleChainCtx) New() types.Node {
	panic("not support this func")
}

// Init rule chains are initialized by InitRuleChainCtx
func (rc *RuleChainCtx) Init(_ types.Config, _ types.Configuration) error {
	return nil
}

// OnMsg sends the message to the first node of the chain
func (rc *RuleChainCtx) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	if firstNode, ok := rc.GetFirstNode(); ok {
		firstNode.OnMsg(ctx, msg)
	} else {
		ctx.DoOnEnd(msg, types.ErrRuleChainHasNoNodes, "")
	}
}

// Destroy destroys every initialized node
func (rc *RuleChainCtx) Destroy() {
	rc.RLock()
	defer rc.RUnlock()
	for _, v := range rc.nodes {
		if v != nil {
			v.Destroy()
		}
	}
}

// IsDebugMode checks if debug mode is enabled
func (rc *RuleChainCtx) IsDebugMode() bool {
	return rc.SelfDefinition.RuleChain.DebugMode
}

// GetNodeId returns the node ID
func (rc *RuleChainCtx) GetNodeId() types.RuleNodeId {
	return rc.Id
}

// DSL returns the rule chain definition as a byte slice
func (rc *RuleChainCtx) DSL() []byte {
	v, _ := rc.config.Parser.EncodeRuleChain(rc.SelfDefinition)
	return v
}

// Definition returns the rule chain definition
func (rc *RuleChainCtx) Definition() *types.RuleChain {
	return rc.SelfDefinition
}
