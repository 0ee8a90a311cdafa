package discovery

import (
	"context"
	"sync"

	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/rank"
)

// accumulator collects accepted providers in acceptance order. Adds are
// rejected once the quota is reached or the caller's context is done, so
// a cancelled worker never mutates the list.
type accumulator struct {
	mu    sync.Mutex
	quota int
	seen  map[string]struct{}
	list  []model.Provider
}

func newAccumulator(quota int) *accumulator {
	return &accumulator{quota: quota, seen: make(map[string]struct{})}
}

// add accepts p unless its name was already seen. full is true once the
// quota has been reached.
func (a *accumulator) add(ctx context.Context, p model.Provider) (accepted, full bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.list) >= a.quota {
		return false, true
	}
	if ctx.Err() != nil {
		return false, false
	}
	k := rank.Key(p.Name)
	if _, dup := a.seen[k]; dup {
		return false, false
	}
	a.seen[k] = struct{}{}
	a.list = append(a.list, p)
	return true, len(a.list) >= a.quota
}

func (a *accumulator) full() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.list) >= a.quota
}

func (a *accumulator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.list)
}

func (a *accumulator) providers() []model.Provider {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Provider(nil), a.list...)
}
