package data

import (
	"fmt"
)

// TopologyNode is any comparable value.
type TopologyNode interface{}

type TopologyEdge struct {
	From TopologyNode
	To   TopologyNode
}

// Topology is a dependency graph. Sort is deterministic: independent nodes
// keep the order they were added in.
type Topology struct {
	nodes []TopologyNode
	index map[TopologyNode]struct{}
	outs  map[TopologyNode][]TopologyNode
}

func NewTopology(nodes ...TopologyNode) *Topology {
	top := &Topology{
		nodes: make([]TopologyNode, 0, len(nodes)),
		index: make(map[TopologyNode]struct{}),
		outs:  make(map[TopologyNode][]TopologyNode),
	}
	for _, node := range nodes {
		top.AddNode(node)
	}
	return top
}

func (top *Topology) AddNode(node TopologyNode) {
	if _, ok := top.index[node]; ok {
		return
	}
	top.index[node] = struct{}{}
	top.nodes = append(top.nodes, node)
}

// Connect creates a directed edge from node "from" to node "to", read as
// "from depends on to": Sort returns "to" before "from".
func (top *Topology) Connect(from, to TopologyNode) error {
	if _, ok := top.index[from]; !ok {
		return fmt.Errorf("Can not connect from unknown node: %#v", from)
	}
	if _, ok := top.index[to]; !ok {
		return fmt.Errorf("Can not connect to unknown node: %#v", to)
	}
	for _, existing := range top.outs[from] {
		if existing == to {
			return nil
		}
	}
	top.outs[from] = append(top.outs[from], to)
	return nil
}

// Edges returns every edge of the graph.
func (top *Topology) Edges() []TopologyEdge {
	res := make([]TopologyEdge, 0)
	for _, from := range top.nodes {
		for _, to := range top.outs[from] {
			res = append(res, TopologyEdge{From: from, To: to})
		}
	}
	return res
}

// Sort returns the nodes ordered so that every node follows the nodes it
// depends on. A cycle is an error.
func (top *Topology) Sort() ([]TopologyNode, error) {
	temp := make(map[TopologyNode]bool)
	perm := make(map[TopologyNode]bool)
	res := make([]TopologyNode, 0, len(top.nodes))

	var visit func(TopologyNode) error
	visit = func(node TopologyNode) error {
		if perm[node] {
			return nil
		}
		if temp[node] {
			return fmt.Errorf("Detected graph cycle on node %#v", node)
		}
		temp[node] = true
		for _, dep := range top.outs[node] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		perm[node] = true
		res = append(res, node)
		return nil
	}
	for _, node := range top.nodes {
		if err := visit(node); err != nil {
			return nil, err
		}
	}
	return res, nil
}
