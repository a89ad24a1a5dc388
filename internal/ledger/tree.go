package ledger

import "sort"

// ViewMode selects how much of the tree is rendered.
type ViewMode string

const (
	ViewDetailed ViewMode = "detailed"
	ViewSummary  ViewMode = "summary"
)

// ParseViewMode defaults to the detailed view.
func ParseViewMode(raw string) ViewMode {
	if ViewMode(raw) == ViewSummary {
		return ViewSummary
	}
	return ViewDetailed
}

// GroupNode is one display row of the group tree.
type GroupNode struct {
	Group    Group       `json:"group"`
	Depth    int         `json:"depth"`
	Own      float64     `json:"own"`
	Total    float64     `json:"total"`
	Ledgers  []Balance   `json:"ledgers,omitempty"`
	Children []GroupNode `json:"children,omitempty"`
}

// Tree builds display nodes for the supplied roots. Summary view drops ledger rows and
// any group whose subtree total is zero; detailed view keeps everything.
func (h *Hierarchy) Tree(rootIDs []int64, ledgers []Ledger, turnovers Turnovers, mode ViewMode) []GroupNode {
	byGroup := make(map[int64][]Balance)
	for _, l := range ledgers {
		byGroup[l.GroupID] = append(byGroup[l.GroupID], Resolve(l, turnovers))
	}
	for id := range byGroup {
		rows := byGroup[id]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Ledger.ID < rows[j].Ledger.ID })
	}

	nodes := make([]GroupNode, 0, len(rootIDs))
	for _, id := range rootIDs {
		node, _, ok := h.node(id, 0, byGroup, mode)
		if ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// node also returns the absolute closings of every ledger in the subtree, so each
// total is summed in sorted order like GroupTotal.
func (h *Hierarchy) node(id int64, depth int, byGroup map[int64][]Balance, mode ViewMode) (GroupNode, []float64, bool) {
	g, ok := h.groups[id]
	if !ok {
		g = Group{ID: id}
	}
	node := GroupNode{Group: g, Depth: depth}

	amounts := make([]float64, 0, len(byGroup[id]))
	for _, b := range byGroup[id] {
		amounts = append(amounts, abs(b.Closing))
	}
	subtree := append([]float64(nil), amounts...)
	node.Own = sumSorted(amounts)

	for _, child := range h.children[id] {
		childNode, childAmounts, keep := h.node(child, depth+1, byGroup, mode)
		subtree = append(subtree, childAmounts...)
		if keep {
			node.Children = append(node.Children, childNode)
		}
	}
	node.Total = sumSorted(subtree)

	if mode == ViewSummary {
		return node, subtree, node.Total != 0
	}
	node.Ledgers = append([]Balance(nil), byGroup[id]...)
	return node, subtree, true
}
