package deployer

import (
	"sync"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// StateChange notifies a subscriber of one deployment state transition.
type StateChange func(slug string, from, to api.DeploymentState)

// attempt tracks the state machine for one in-flight deployment. Transitions
// are forward-only: once a terminal state is reached, further advances are
// ignored. A fresh attempt holds the zero state until the first advance, so
// entering requested notifies the subscriber like every other transition.
type attempt struct {
	mu    sync.RWMutex
	slug  string
	state api.DeploymentState
	cb    StateChange
}

func newAttempt(slug string, cb StateChange) *attempt {
	return &attempt{slug: slug, cb: cb}
}

// advance moves the attempt to the next state and notifies the subscriber.
func (a *attempt) advance(to api.DeploymentState) {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return
	}
	from := a.state
	a.state = to
	callback := a.cb
	a.mu.Unlock()

	logging.Debug("Deployer", "Deployment of %s entered state %s", a.slug, to)

	// Invoke the callback outside the lock to avoid deadlocks
	if callback != nil && from != to {
		callback(a.slug, from, to)
	}
}

// current returns the attempt's state.
func (a *attempt) current() api.DeploymentState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}
