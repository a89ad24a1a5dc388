package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedHierarchy is matched by every hierarchy validation failure.
var ErrMalformedHierarchy = errors.New("ledger: malformed hierarchy")

// MalformedHierarchyError describes why a group list cannot form a forest.
type MalformedHierarchyError struct {
	Cycle     []int64
	Duplicate int64
}

func (e *MalformedHierarchyError) Error() string {
	if len(e.Cycle) > 0 {
		ids := make([]string, 0, len(e.Cycle)+1)
		for _, id := range e.Cycle {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		ids = append(ids, strconv.FormatInt(e.Cycle[0], 10))
		return fmt.Sprintf("%s: parent cycle %s", ErrMalformedHierarchy, strings.Join(ids, " -> "))
	}
	return fmt.Sprintf("%s: duplicate group id %d", ErrMalformedHierarchy, e.Duplicate)
}

// Is lets errors.Is match ErrMalformedHierarchy.
func (e *MalformedHierarchyError) Is(target error) bool {
	return target == ErrMalformedHierarchy
}
