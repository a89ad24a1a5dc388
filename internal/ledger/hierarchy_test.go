package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func parent(id int64) *int64 { return &id }

func sampleGroups() []Group {
	return WithBuiltins([]Group{
		{ID: 1, Name: "Bank Accounts", Nature: NatureAssets, ParentID: parent(GroupCurrentAssets)},
		{ID: 2, Name: "Sundry Debtors", Nature: NatureAssets, ParentID: parent(GroupCurrentAssets)},
		{ID: 3, Name: "North Region", Nature: NatureAssets, ParentID: parent(2)},
		{ID: 4, Name: "Duties & Taxes", Nature: NatureLiabilities, ParentID: parent(GroupCurrentLiabilities)},
	})
}

func sampleLedgers() []Ledger {
	return []Ledger{
		{ID: 10, Name: "HDFC", GroupID: 1, Opening: 1000, Side: SideDebit},
		{ID: 11, Name: "Acme Traders", GroupID: 3, Opening: 200, Side: SideDebit},
		{ID: 12, Name: "Cash", GroupID: GroupCurrentAssets, Opening: 50, Side: SideDebit},
		{ID: 13, Name: "Output CGST", GroupID: 4, Opening: 0, Side: SideCredit},
		{ID: 14, Name: "Beta Stores", GroupID: 2, Opening: 0, Side: SideDebit},
	}
}

func TestResolveSubtreeIncludesRoot(t *testing.T) {
	h, err := NewHierarchy(sampleGroups())
	require.NoError(t, err)

	require.Equal(t, map[int64]struct{}{GroupInvestments: {}}, h.ResolveSubtree(GroupInvestments))
	require.Equal(t, map[int64]struct{}{999: {}}, h.ResolveSubtree(999))

	sub := h.ResolveSubtree(GroupCurrentAssets)
	require.Len(t, sub, 4)
	for _, id := range []int64{GroupCurrentAssets, 1, 2, 3} {
		require.Contains(t, sub, id)
	}
}

func TestGroupTotalUsesAbsoluteClosing(t *testing.T) {
	turnovers := Turnovers{
		10: {Debit: 500, Credit: 2000},
		11: {Debit: 300},
		13: {Credit: 90},
	}
	total, err := GroupTotal(GroupCurrentAssets, sampleGroups(), sampleLedgers(), turnovers)
	require.NoError(t, err)
	// |1000+500-2000| + |200+300| + |50| + 0
	require.InDelta(t, 1050.0, total, 0.0001)
}

func TestGroupTotalOrderInvariant(t *testing.T) {
	groups := sampleGroups()
	ledgers := sampleLedgers()
	turnovers := Turnovers{10: {Debit: 0.1}, 11: {Debit: 0.2}, 12: {Credit: 0.3}, 14: {Debit: 1e-9}}

	first, err := GroupTotal(GroupCurrentAssets, groups, ledgers, turnovers)
	require.NoError(t, err)

	reversedGroups := make([]Group, len(groups))
	for i, g := range groups {
		reversedGroups[len(groups)-1-i] = g
	}
	reversedLedgers := make([]Ledger, len(ledgers))
	for i, l := range ledgers {
		reversedLedgers[len(ledgers)-1-i] = l
	}
	second, err := GroupTotal(GroupCurrentAssets, reversedGroups, reversedLedgers, turnovers)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGroupTotalEmptyInputs(t *testing.T) {
	total, err := GroupTotal(GroupCurrentAssets, nil, nil, nil)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestNewHierarchyRejectsCycle(t *testing.T) {
	groups := []Group{
		{ID: 1, Name: "A", ParentID: parent(3)},
		{ID: 2, Name: "B", ParentID: parent(1)},
		{ID: 3, Name: "C", ParentID: parent(2)},
		{ID: 4, Name: "D"},
	}
	_, err := NewHierarchy(groups)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedHierarchy))

	var malformed *MalformedHierarchyError
	require.True(t, errors.As(err, &malformed))
	require.ElementsMatch(t, []int64{1, 2, 3}, malformed.Cycle)

	_, err = ResolveSubtree(4, groups)
	require.ErrorIs(t, err, ErrMalformedHierarchy)
}

func TestNewHierarchyRejectsSelfParent(t *testing.T) {
	_, err := NewHierarchy([]Group{{ID: 7, Name: "Loop", ParentID: parent(7)}})
	require.ErrorIs(t, err, ErrMalformedHierarchy)
}

func TestNewHierarchyRejectsDuplicateIDs(t *testing.T) {
	_, err := NewHierarchy([]Group{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}})
	require.ErrorIs(t, err, ErrMalformedHierarchy)
}

func TestUnknownParentBecomesRoot(t *testing.T) {
	h, err := NewHierarchy([]Group{{ID: 5, Name: "Orphan", ParentID: parent(404)}})
	require.NoError(t, err)
	require.Equal(t, []int64{5}, h.Roots())
	require.Equal(t, int64(5), h.RootOf(5))
}

func TestRootOfFollowsParents(t *testing.T) {
	h, err := NewHierarchy(sampleGroups())
	require.NoError(t, err)
	require.Equal(t, GroupCurrentAssets, h.RootOf(3))
	require.Equal(t, []int64{1, 2}, h.Children(GroupCurrentAssets))
}

func TestTreeSummarySuppressesZeroGroups(t *testing.T) {
	h, err := NewHierarchy(sampleGroups())
	require.NoError(t, err)
	ledgers := []Ledger{{ID: 10, GroupID: 1, Opening: 100, Side: SideDebit}}
	roots := []int64{GroupCurrentAssets}

	detailed := h.Tree(roots, ledgers, nil, ViewDetailed)
	require.Len(t, detailed, 1)
	require.Len(t, detailed[0].Children, 2)
	require.Len(t, detailed[0].Children[1].Children, 1, "empty leaf group stays in detailed view")

	summary := h.Tree(roots, ledgers, nil, ViewSummary)
	require.Len(t, summary, 1)
	require.Len(t, summary[0].Children, 1)
	require.Equal(t, int64(1), summary[0].Children[0].Group.ID)
	require.Empty(t, summary[0].Children[0].Ledgers)
	require.InDelta(t, 100.0, summary[0].Total, 0.0001)

	empty := h.Tree([]int64{GroupFixedAssets}, ledgers, nil, ViewSummary)
	require.Empty(t, empty)
}

func TestTreeIsIdempotent(t *testing.T) {
	h, err := NewHierarchy(sampleGroups())
	require.NoError(t, err)
	a := h.Tree(h.Roots(), sampleLedgers(), Turnovers{10: {Debit: 5}}, ViewDetailed)
	b := h.Tree(h.Roots(), sampleLedgers(), Turnovers{10: {Debit: 5}}, ViewDetailed)
	require.Equal(t, a, b)
}

func TestTreeTotalsIndependentOfGroupOrder(t *testing.T) {
	groups := WithBuiltins([]Group{
		{ID: 1, Name: "Petty Cash", Nature: NatureAssets, ParentID: parent(GroupCurrentAssets)},
		{ID: 2, Name: "Deposits", Nature: NatureAssets, ParentID: parent(GroupCurrentAssets)},
		{ID: 3, Name: "Advances", Nature: NatureAssets, ParentID: parent(GroupCurrentAssets)},
	})
	ledgers := []Ledger{
		{ID: 10, GroupID: 1, Opening: 0.1, Side: SideDebit},
		{ID: 11, GroupID: 2, Opening: 0.2, Side: SideDebit},
		{ID: 12, GroupID: 3, Opening: 0.3, Side: SideDebit},
	}
	reversed := make([]Group, len(groups))
	for i, g := range groups {
		reversed[len(groups)-1-i] = g
	}

	h, err := NewHierarchy(groups)
	require.NoError(t, err)
	hr, err := NewHierarchy(reversed)
	require.NoError(t, err)

	root := []int64{GroupCurrentAssets}
	a := h.Tree(root, ledgers, nil, ViewDetailed)
	b := hr.Tree(root, ledgers, nil, ViewDetailed)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Equal(t, a[0].Total, b[0].Total)

	total, err := GroupTotal(GroupCurrentAssets, groups, ledgers, nil)
	require.NoError(t, err)
	require.Equal(t, total, a[0].Total)
}
