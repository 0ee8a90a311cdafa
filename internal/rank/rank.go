// Package rank collapses duplicate providers and orders them by how much
// we know about each.
package rank

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/event-planner/internal/model"
)

// Key is the dedup key for a provider name: case-folded with runs of
// whitespace collapsed. Casers are stateful, so one is made per call.
func Key(name string) string {
	return strings.Join(strings.Fields(cases.Fold().String(name)), " ")
}

// Rank sorts providers by completeness (stable on ties), drops later
// records whose name key was already emitted, and truncates to limit.
// Records without a name are dropped. The input slice is not modified.
func Rank(providers []model.Provider, limit int) []model.Provider {
	sorted := make([]model.Provider, 0, len(providers))
	for _, p := range providers {
		if strings.TrimSpace(p.Name) != "" && !p.IsHeader {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Completeness() > sorted[j].Completeness()
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]model.Provider, 0, len(sorted))
	for _, p := range sorted {
		k := Key(p.Name)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
