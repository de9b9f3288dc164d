package grading

import (
	"encoding/json"
	"sort"
	"strings"
)

// Answer keys arrive from content in three loose shapes: a bare token
// ("A"), a comma-joined list ("A,C"), or a JSON array (["A","C"]).
// ParseAnswerKey collapses all of them into one canonical sorted token set
// at the data-access boundary so nothing downstream branches on shape.
func ParseAnswerKey(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return Normalize(arr)
		}
		// malformed array literal: fall through and treat as a bare token
	}
	if strings.Contains(raw, ",") {
		return Normalize(strings.Split(raw, ","))
	}
	return Normalize([]string{raw})
}

// Normalize trims, drops empties, dedupes and sorts, yielding the
// canonical form both grading operands are compared in.
func Normalize(vals []string) []string {
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// setsEqual is order-independent equality over canonical (sorted) forms.
// An empty operand on either side never matches: an empty selection is
// always incorrect, and a malformed key must not grade as correct.
func setsEqual(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
