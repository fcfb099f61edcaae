// SPDX-License-Identifier: MPL-2.0

// Package dag provides a small directed graph used to reject cyclic
// references, such as scripts that invoke each other.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle.
	CycleError struct {
		// Path lists the nodes along the cycle; the first node is repeated at the end.
		Path []string
	}

	// Graph is a directed graph keyed by node name. An edge from A to B means
	// A refers to B.
	Graph struct {
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to. Both nodes are implicitly added.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// FindCycle returns a *CycleError for the first cycle reachable from the
// given roots (all nodes when none are given), or nil. Traversal follows
// insertion order, so the reported path is deterministic.
func (g *Graph) FindCycle(roots ...string) error {
	if len(roots) == 0 {
		roots = g.nodes
	}

	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(node string) []string
	visit = func(node string) []string {
		switch state[node] {
		case done:
			return nil
		case onPath:
			start := 0
			for i, n := range path {
				if n == node {
					start = i
					break
				}
			}
			cycle := append([]string(nil), path[start:]...)
			return append(cycle, node)
		}

		state[node] = onPath
		path = append(path, node)
		for _, next := range g.adjacency[node] {
			if cycle := visit(next); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[node] = done
		return nil
	}

	for _, root := range roots {
		if !g.nodeSet[root] {
			continue
		}
		if cycle := visit(root); cycle != nil {
			return &CycleError{Path: cycle}
		}
	}
	return nil
}
