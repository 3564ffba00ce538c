package tracker

import (
	"container/heap"
	"sort"
	"strings"

	"github.com/sandeepkv93/studyd/internal/model"
)

// ValidateGraph rejects duplicate task ids, dependencies on unknown tasks
// and any dependency cycle, self-loops included.
func ValidateGraph(p model.Project) error {
	all := p.Tasks()
	index := make(map[string]int, len(all))
	ids := make([]string, 0, len(all))
	for _, t := range all {
		if _, dup := index[t.ID]; dup {
			return model.Validationf("duplicate task id %q", t.ID)
		}
		index[t.ID] = 0
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	for i, id := range ids {
		index[id] = i
	}

	// edges run dependency -> dependent
	outgoing := make([][]int, len(ids))
	indeg := make([]int, len(ids))
	for _, t := range all {
		to := index[t.ID]
		seen := make(map[string]bool, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				return model.DependencyCyclef("%s -> %s", dep, dep)
			}
			from, ok := index[dep]
			if !ok {
				return model.Validationf("task %s depends on unknown task %q", t.ID, dep)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			outgoing[from] = append(outgoing[from], to)
			indeg[to]++
		}
	}
	for i := range outgoing {
		sort.Ints(outgoing[i])
	}

	g := depGraph{ids: ids, outgoing: outgoing, indeg: indeg}
	if len(g.topoOrder()) == len(ids) {
		return nil
	}
	return model.DependencyCyclef("%s", strings.Join(g.findCycle(), " -> "))
}

type depGraph struct {
	ids      []string
	outgoing [][]int
	indeg    []int
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder is Kahn's algorithm with a min-heap ready queue so the order is
// stable for a given graph.
func (g depGraph) topoOrder() []int {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}
	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle returns one cycle as ids in edge order, first id repeated last.
func (g depGraph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.ids))
	parent := make([]int, len(g.ids))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for i := range g.ids {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.ids[cycle[i]])
	}
	return out
}
