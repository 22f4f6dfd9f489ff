// Package order owns the user's workspace arrangement: a pure merge of the
// persisted order with the live set, and a best-effort JSON store for it.
package order

// Merge combines a previously saved workspace order with the live workspace
// set. The result contains exactly the elements of current, each once:
// elements present in both keep saved's relative order, elements new in
// current are appended in current's order, and saved entries that no longer
// exist are dropped. Duplicates in either input collapse to the first
// occurrence.
func Merge(saved, current []string) []string {
	inCurrent := make(map[string]bool, len(current))
	for _, id := range current {
		inCurrent[id] = true
	}

	merged := make([]string, 0, len(current))
	seen := make(map[string]bool, len(current))

	for _, id := range saved {
		if inCurrent[id] && !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	for _, id := range current {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}

	return merged
}
