package derive

import (
	"sort"
	"strings"
)

// layerGraph maps layer → layers recomputed from it.
type layerGraph map[string][]string

// buildGraph constructs the source → target dependency graph.
//
// Every layer that appears in a binding becomes a node, so layers without
// outgoing edges still show up in the SCC pass.
func buildGraph(bindings []Binding) layerGraph {
	graph := make(layerGraph)
	for _, b := range bindings {
		graph[b.Source] = append(graph[b.Source], b.Target)
		if graph[b.Target] == nil {
			graph[b.Target] = []string{}
		}
	}
	return graph
}

// findCycle returns one cycle path (first node repeated at the end), or nil
// if the graph is a DAG.
func findCycle(graph layerGraph) []string {
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 {
			if hasSelfLoop(scc[0], graph) {
				return []string{scc[0], scc[0]}
			}
			continue
		}
		sort.Strings(scc)
		return append(scc, scc[0])
	}
	return nil
}

func hasSelfLoop(node string, graph layerGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph layerGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range sortedNodes(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// topoOrder returns binding indices so that every binding runs after the
// bindings that produce its source. The graph must be acyclic. Ties keep
// registration order.
func topoOrder(bindings []Binding) []int {
	producer := make(map[string]int, len(bindings)) // target → binding index
	for i, b := range bindings {
		producer[b.Target] = i
	}

	order := make([]int, 0, len(bindings))
	done := make([]bool, len(bindings))
	var visit func(i int)
	visit = func(i int) {
		if done[i] {
			return
		}
		done[i] = true
		if p, ok := producer[bindings[i].Source]; ok {
			visit(p)
		}
		order = append(order, i)
	}
	for i := range bindings {
		visit(i)
	}
	return order
}

func sortedNodes(graph layerGraph) []string {
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

func formatPath(path []string) string {
	return strings.Join(path, " → ")
}
