package engine

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning is a set of follow-on rules that can trigger each other.
//
// Cycles are warnings, not errors: a rule that re-fires with different
// arguments terminates on its own, and one that repeats its arguments is
// stopped at runtime by the CycleDetector.
type CycleWarning struct {
	Path    []string `json:"path"` // rule ids, first repeated last: ["a", "b", "a"]
	Message string   `json:"message"`
}

// AnalyzeRuleCycles finds rule cycles statically. Rule A feeds rule B when
// A's then-action is B's when-action; output cases are ignored, since a
// rule's completion case is not known before it runs.
//
// Results are sorted by path so repeated runs report identically.
func AnalyzeRuleCycles(rules []Rule) []CycleWarning {
	graph := buildRuleGraph(rules)

	var warnings []CycleWarning
	for _, scc := range stronglyConnected(graph) {
		if len(scc) == 1 && !slices.Contains(graph[scc[0]], scc[0]) {
			continue
		}
		path := cyclePath(scc, graph)
		msg := "follow-on rules can trigger each other: " + strings.Join(path, " -> ")
		if len(scc) == 1 {
			msg = fmt.Sprintf("follow-on rule %s triggers itself", scc[0])
		}
		warnings = append(warnings, CycleWarning{Path: path, Message: msg})
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return slices.Compare(a.Path, b.Path)
	})
	return warnings
}

// ruleGraph maps a rule id to the ids of the rules its follow-on can
// trigger, in rule order.
type ruleGraph map[string][]string

func buildRuleGraph(rules []Rule) ruleGraph {
	byWhen := make(map[string][]string)
	for _, r := range rules {
		byWhen[string(r.When.Action)] = append(byWhen[string(r.When.Action)], r.ID)
	}
	graph := make(ruleGraph, len(rules))
	for _, r := range rules {
		graph[r.ID] = append([]string{}, byWhen[string(r.Then.Action)]...)
	}
	return graph
}

// stronglyConnected is Tarjan's algorithm. Nodes are visited in sorted
// order and each component is returned sorted.
func stronglyConnected(graph ruleGraph) [][]string {
	var (
		next    int
		stack   []string
		index   = make(map[string]int)
		low     = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var visit func(v string)
	visit = func(v string) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, seen := index[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
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
		slices.Sort(scc)
		sccs = append(sccs, scc)
	}

	nodes := make([]string, 0, len(graph))
	for id := range graph {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	for _, v := range nodes {
		if _, seen := index[v]; !seen {
			visit(v)
		}
	}
	return sccs
}

// cyclePath walks from the smallest id through unvisited component
// members until it can return to the start.
func cyclePath(scc []string, graph ruleGraph) []string {
	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}

	for current := start; ; {
		var step string
		for _, w := range graph[current] {
			if w == start && len(path) == len(scc) {
				return append(path, start)
			}
			if slices.Contains(scc, w) && !visited[w] && step == "" {
				step = w
			}
		}
		if step == "" {
			// Dead end: report the loop walked so far.
			return append(path, start)
		}
		visited[step] = true
		path = append(path, step)
		current = step
	}
}
