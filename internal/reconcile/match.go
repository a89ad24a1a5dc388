package reconcile

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Reconcile matches internal records against external ones by business key.
//
// Each internal record claims the first unconsumed external record with an equal key
// (trimmed, case folded). Checks run in order and the first failure decides the
// mismatch reason. External records that were never claimed are appended as
// MISSING_IN_INTERNAL. A nil key extractor marks every record UNKNOWN_KEYS.
func Reconcile(internal, external []Record, keys KeyPair, checks []FieldCheck) Result {
	result := Result{Rows: make([]Row, 0, len(internal)+len(external))}
	if keys.Internal == nil || keys.External == nil {
		for _, rec := range internal {
			result.append(Row{Status: StatusUnknownKeys, Internal: rec, Reason: "business key column not found"})
		}
		for _, rec := range external {
			result.append(Row{Status: StatusUnknownKeys, External: rec, Reason: "business key column not found"})
		}
		return result
	}

	fold := cases.Fold()
	normalize := func(key string) string {
		return fold.String(strings.TrimSpace(key))
	}

	index := make(map[string][]int, len(external))
	for idx, rec := range external {
		key := normalize(keys.External(rec))
		if key == "" {
			continue
		}
		index[key] = append(index[key], idx)
	}
	consumed := make([]bool, len(external))

	for _, rec := range internal {
		rawKey := strings.TrimSpace(keys.Internal(rec))
		row := Row{Status: StatusUnmatched, Key: rawKey, Internal: rec}

		match := -1
		if key := normalize(rawKey); key != "" {
			candidates := index[key]
			for len(candidates) > 0 && consumed[candidates[0]] {
				candidates = candidates[1:]
			}
			if len(candidates) > 0 {
				match = candidates[0]
				index[key] = candidates[1:]
			}
		}
		if match < 0 {
			row.Status = StatusMissingInExternal
			result.append(row)
			continue
		}

		consumed[match] = true
		row.External = external[match]
		row.Status, row.Reason = runChecks(rec, external[match], checks)
		result.append(row)
	}

	for idx, rec := range external {
		if consumed[idx] {
			continue
		}
		result.append(Row{
			Status:   StatusMissingInInternal,
			Key:      strings.TrimSpace(keys.External(rec)),
			External: rec,
		})
	}
	return result
}

func (r *Result) append(row Row) {
	r.Rows = append(r.Rows, row)
	r.Stats.add(row.Status)
}

func runChecks(internal, external Record, checks []FieldCheck) (Status, string) {
	for _, check := range checks {
		if check.Internal == nil || check.External == nil {
			return StatusUnknownKeys, fmt.Sprintf("%s: column not found", check.Label)
		}
		ext := strings.TrimSpace(check.External(external))
		in := strings.TrimSpace(check.Internal(internal))
		if !check.equal(ext, in) {
			return StatusMismatch, fmt.Sprintf("%s: %s vs %s", check.Label, ext, in)
		}
	}
	return StatusMatched, ""
}

func (c FieldCheck) equal(external, internal string) bool {
	switch c.Kind {
	case CheckNumber:
		return withinTolerance(external, internal, c.Tolerance)
	case CheckDate:
		return NormalizeDate(external) == NormalizeDate(internal)
	default:
		return external == internal
	}
}
