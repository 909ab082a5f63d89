// Package pathfind finds shortest paths over the Location graph and shapes
// a vehicle's stop sequence around its actual load.
package pathfind

import (
	"container/heap"
	"delivery-dispatch-sim/internal/domain"
	"math"
)

// Graph is the part of the Location graph Dijkstra needs.
type Graph interface {
	domain.Distancer
	Neighbors(id domain.LocationID) []domain.LocationID
}

type item struct {
	id   domain.LocationID
	dist float64
	seq  int
}

// queue is a min-heap on dist; seq breaks ties in push order.
type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any) { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// ShortestPath runs Dijkstra from src and stops once dst is settled. The
// returned path includes both endpoints. ok is false when dst is unreachable.
func ShortestPath(g Graph, src, dst domain.LocationID) (path []domain.LocationID, dist float64, ok bool) {
	if src == dst {
		return []domain.LocationID{src}, 0, true
	}

	best := map[domain.LocationID]float64{src: 0}
	prev := map[domain.LocationID]domain.LocationID{}
	settled := map[domain.LocationID]bool{}

	q := &queue{{id: src}}
	seq := 1
	for q.Len() > 0 {
		cur := heap.Pop(q).(item)
		if settled[cur.id] {
			continue
		}
		settled[cur.id] = true
		if cur.id == dst {
			break
		}

		for _, next := range g.Neighbors(cur.id) {
			if settled[next] {
				continue
			}
			w := g.Distance(cur.id, next)
			if math.IsInf(w, 1) {
				continue
			}
			nd := cur.dist + w
			if d, seen := best[next]; seen && nd >= d {
				continue
			}
			best[next] = nd
			prev[next] = cur.id
			heap.Push(q, item{id: next, dist: nd, seq: seq})
			seq++
		}
	}

	if !settled[dst] {
		return nil, math.Inf(1), false
	}
	for at := dst; ; at = prev[at] {
		path = append(path, at)
		if at == src {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, best[dst], true
}
