package taxonomy

import (
	"context"

	"github.com/tagwright/tagwright-server/internal/script"
)

// graph is the implication graph seen by one action of a script: active
// implications, minus those removed by earlier actions, plus every
// implication the script creates. Adjacency lists are loaded from the
// snapshot on first use and cached for the lifetime of one validation.
type graph struct {
	snap     Snapshot
	removed  map[edge]bool
	added    map[string][]string
	cache    map[string][]string
	maxNodes int
}

func newGraph(snap Snapshot, set *script.ActionSet, maxNodes int) *graph {
	g := &graph{
		snap:     snap,
		removed:  make(map[edge]bool),
		added:    make(map[string][]string),
		cache:    make(map[string][]string),
		maxNodes: maxNodes,
	}
	for _, action := range set.Actions() {
		if a, ok := action.(script.CreateImplication); ok && !a.IsSelfReference() {
			g.added[a.Antecedent] = append(g.added[a.Antecedent], a.Consequent)
		}
	}
	return g
}

// remove drops an active implication from the graph.
func (g *graph) remove(antecedent, consequent string) {
	g.removed[edge{antecedent, consequent}] = true
	delete(g.cache, antecedent)
}

func (g *graph) neighbors(ctx context.Context, node string) ([]string, error) {
	if next, ok := g.cache[node]; ok {
		return next, nil
	}

	existing, err := g.snap.ImplicationsFrom(ctx, node)
	if err != nil {
		return nil, err
	}

	next := make([]string, 0, len(existing)+len(g.added[node]))
	for _, to := range existing {
		if !g.removed[edge{node, to}] {
			next = append(next, to)
		}
	}
	next = append(next, g.added[node]...)

	g.cache[node] = next
	return next, nil
}

// reachable reports whether to can be reached from from without traversing
// skip. The search is breadth-first and gives up with errGraphTooLarge after
// visiting maxNodes nodes.
func (g *graph) reachable(ctx context.Context, from, to string, skip edge) (bool, error) {
	visited := map[string]bool{from: true}
	queue := []string{from}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		node := queue[0]
		queue = queue[1:]

		next, err := g.neighbors(ctx, node)
		if err != nil {
			return false, err
		}
		for _, n := range next {
			if (edge{node, n}) == skip || visited[n] {
				continue
			}
			if n == to {
				return true, nil
			}
			visited[n] = true
			if len(visited) > g.maxNodes {
				return false, errGraphTooLarge
			}
			queue = append(queue, n)
		}
	}
	return false, nil
}
