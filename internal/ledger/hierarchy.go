package ledger

import "sort"

// Hierarchy is a validated, acyclic chart-of-accounts forest.
type Hierarchy struct {
	groups   map[int64]Group
	order    []int64
	children map[int64][]int64
	roots    []int64
}

// NewHierarchy indexes groups and rejects duplicate ids and parent cycles. Groups whose
// parent is unknown become roots.
func NewHierarchy(groups []Group) (*Hierarchy, error) {
	h := &Hierarchy{
		groups:   make(map[int64]Group, len(groups)),
		order:    make([]int64, 0, len(groups)),
		children: make(map[int64][]int64),
	}
	for _, g := range groups {
		if _, exists := h.groups[g.ID]; exists {
			return nil, &MalformedHierarchyError{Duplicate: g.ID}
		}
		h.groups[g.ID] = g
		h.order = append(h.order, g.ID)
	}
	if cycle := h.findCycle(); cycle != nil {
		return nil, &MalformedHierarchyError{Cycle: cycle}
	}
	for _, id := range h.order {
		parent, ok := h.parentOf(id)
		if !ok {
			h.roots = append(h.roots, id)
			continue
		}
		h.children[parent] = append(h.children[parent], id)
	}
	return h, nil
}

func (h *Hierarchy) parentOf(id int64) (int64, bool) {
	g, ok := h.groups[id]
	if !ok || g.ParentID == nil {
		return 0, false
	}
	if _, known := h.groups[*g.ParentID]; !known {
		return 0, false
	}
	return *g.ParentID, true
}

// findCycle walks every parent chain once, colouring nodes in progress so the first
// revisit inside the current chain closes a cycle.
func (h *Hierarchy) findCycle() []int64 {
	const (
		unvisited = iota
		walking
		done
	)
	state := make(map[int64]int, len(h.groups))
	for _, start := range h.order {
		if state[start] != unvisited {
			continue
		}
		var path []int64
		cur, ok := start, true
		for ok && state[cur] == unvisited {
			state[cur] = walking
			path = append(path, cur)
			cur, ok = h.parentOf(cur)
		}
		if ok && state[cur] == walking {
			for i, id := range path {
				if id == cur {
					return append([]int64(nil), path[i:]...)
				}
			}
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return nil
}

// Group returns the group with the supplied id.
func (h *Hierarchy) Group(id int64) (Group, bool) {
	g, ok := h.groups[id]
	return g, ok
}

// Groups returns every group in input order.
func (h *Hierarchy) Groups() []Group {
	out := make([]Group, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.groups[id])
	}
	return out
}

// Roots returns top-level group ids in input order.
func (h *Hierarchy) Roots() []int64 {
	return append([]int64(nil), h.roots...)
}

// Children returns the direct children of a group in input order.
func (h *Hierarchy) Children(id int64) []int64 {
	return append([]int64(nil), h.children[id]...)
}

// RootOf follows parent pointers up to the top-level group.
func (h *Hierarchy) RootOf(id int64) int64 {
	for {
		parent, ok := h.parentOf(id)
		if !ok {
			return id
		}
		id = parent
	}
}

// ResolveSubtree returns rootID plus every descendant group id.
func (h *Hierarchy) ResolveSubtree(rootID int64) map[int64]struct{} {
	out := map[int64]struct{}{rootID: {}}
	h.collect(rootID, out)
	return out
}

func (h *Hierarchy) collect(id int64, into map[int64]struct{}) {
	for _, child := range h.children[id] {
		into[child] = struct{}{}
		h.collect(child, into)
	}
}

// GroupTotal sums the absolute closing balance of every ledger inside the subtree.
func (h *Hierarchy) GroupTotal(rootID int64, ledgers []Ledger, turnovers Turnovers) float64 {
	subtree := h.ResolveSubtree(rootID)
	amounts := make([]float64, 0, len(ledgers))
	for _, l := range ledgers {
		if _, ok := subtree[l.GroupID]; !ok {
			continue
		}
		amounts = append(amounts, abs(l.Closing(turnovers)))
	}
	return sumSorted(amounts)
}

// sumSorted adds values in ascending order so the result does not depend on input order.
func sumSorted(values []float64) float64 {
	sort.Float64s(values)
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// ResolveSubtree validates groups and resolves the subtree of rootID.
func ResolveSubtree(rootID int64, groups []Group) (map[int64]struct{}, error) {
	h, err := NewHierarchy(groups)
	if err != nil {
		return nil, err
	}
	return h.ResolveSubtree(rootID), nil
}

// GroupTotal validates groups and totals the subtree of rootID.
func GroupTotal(rootID int64, groups []Group, ledgers []Ledger, turnovers Turnovers) (float64, error) {
	h, err := NewHierarchy(groups)
	if err != nil {
		return 0, err
	}
	return h.GroupTotal(rootID, ledgers, turnovers), nil
}
