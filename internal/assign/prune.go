package assign

import "github.com/lotas/fensterordnung/internal/types"

// PruneStale returns a copy of m without the windows for which exists reports
// false, along with the removed window ids in mapping order. m is unchanged.
func PruneStale(m types.Mapping, exists func(windowID int) bool) (types.Mapping, []int) {
	out := m.Clone()
	var removed []int
	for _, id := range m.Windows() {
		if exists(id) {
			continue
		}
		out.DropWindow(id)
		removed = append(removed, id)
	}
	return out, removed
}

// StaleWindows lists the window ids referenced by either mapping that no
// longer exist, without duplicates.
func StaleWindows(domains, keywords types.Mapping, exists func(windowID int) bool) []int {
	seen := make(map[int]bool)
	var stale []int
	for _, m := range []types.Mapping{domains, keywords} {
		for _, id := range m.Windows() {
			if seen[id] || exists(id) {
				continue
			}
			seen[id] = true
			stale = append(stale, id)
		}
	}
	return stale
}

// DropStale prunes both mappings against exists. Planning on the result
// never targets a closed window; the removed ids are returned for reporting.
func DropStale(domains, keywords types.Mapping, exists func(windowID int) bool) (types.Mapping, types.Mapping, []int) {
	stale := StaleWindows(domains, keywords, exists)
	if len(stale) == 0 {
		return domains, keywords, nil
	}
	domains, _ = PruneStale(domains, exists)
	keywords, _ = PruneStale(keywords, exists)
	return domains, keywords, stale
}
