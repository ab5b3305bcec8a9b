// internal/process/runstate.go
package process

import (
	"sync"
	"time"

	"github.com/tendant/simple-scanmatch/pkg/schema"
)

// RunState tracks whether the station is accepting scans. It is safe for
// concurrent readers while the control loop changes it.
type RunState struct {
	mu    sync.RWMutex
	state schema.RunState
	since time.Time
}

func NewRunState() *RunState {
	return &RunState{state: schema.RunStateStopped, since: time.Now()}
}

func (r *RunState) Get() schema.RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *RunState) Running() bool { return r.Get() == schema.RunStateRunning }

// Since reports when the current state was entered.
func (r *RunState) Since() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.since
}

// MarkRunning reports whether the state changed.
func (r *RunState) MarkRunning() bool { return r.set(schema.RunStateRunning) }

// MarkStopped reports whether the state changed.
func (r *RunState) MarkStopped() bool { return r.set(schema.RunStateStopped) }

func (r *RunState) set(s schema.RunState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == s {
		return false
	}
	r.state = s
	r.since = time.Now()
	return true
}
