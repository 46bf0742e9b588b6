// Package reconcile computes which inventoried files nothing reached.
package reconcile

import (
	"encoding/json"
	"sort"

	"github.com/yegor-usoltsev/orphanctl/internal/rules"
)

// Plan is the sorted, duplicate-free set of deletion candidates of one run.
type Plan struct {
	paths []string
}

// NewPlan builds a plan from arbitrary paths, sorting and de-duplicating them.
func NewPlan(paths ...string) Plan {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return Plan{paths: compact(out)}
}

func (p Plan) Paths() []string { return append([]string(nil), p.paths...) }
func (p Plan) Len() int        { return len(p.paths) }
func (p Plan) Empty() bool     { return len(p.paths) == 0 }

func (p Plan) Contains(path string) bool {
	i := sort.SearchStrings(p.paths, path)
	return i < len(p.paths) && p.paths[i] == path
}

// MarshalJSON writes the plan as a flat array of strings.
func (p Plan) MarshalJSON() ([]byte, error) {
	if p.paths == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.paths)
}

func (p *Plan) UnmarshalJSON(b []byte) error {
	var paths []string
	if err := json.Unmarshal(b, &paths); err != nil {
		return err
	}
	*p = NewPlan(paths...)
	return nil
}

// Without returns the plan minus every path matching keep, and the paths it
// removed. Plans read back from disk go through it before anything is deleted.
func (p Plan) Without(keep rules.Set) (Plan, []string) {
	var left, kept []string
	for _, path := range p.paths {
		if keep.MatchesAny(path) {
			kept = append(kept, path)
			continue
		}
		left = append(left, path)
	}
	return Plan{paths: left}, kept
}

// Reconcile returns the inventory paths that are neither effectively reachable
// nor kept. A reachable path matching ignoreAsDep does not count as reachable.
// All paths are expected to be normalized already.
func Reconcile(inventory, reachable []string, keep, ignoreAsDep rules.Set) Plan {
	effective := make(map[string]struct{}, len(reachable))
	for _, p := range reachable {
		if ignoreAsDep.MatchesAny(p) {
			continue
		}
		effective[p] = struct{}{}
	}

	var out []string
	for _, p := range inventory {
		if _, ok := effective[p]; ok {
			continue
		}
		if keep.MatchesAny(p) {
			continue
		}
		out = append(out, p)
	}
	return NewPlan(out...)
}

func compact(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
