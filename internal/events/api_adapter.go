package events

import (
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// Adapter adapts a Bus to implement api.EventBusHandler. It maps domain
// outcomes to event reasons so publishers never deal with templates.
type Adapter struct {
	bus *Bus
}

var _ api.EventBusHandler = (*Adapter)(nil)

// NewAPIAdapter creates a new event bus adapter
func NewAPIAdapter(bus *Bus) *Adapter {
	return &Adapter{bus: bus}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterEventBus(a)
	logging.Debug("Events", "Event bus adapter registered with API")
}

// PublishDeploymentTransition emits the event for one deployment state
// change.
func (a *Adapter) PublishDeploymentTransition(slug string, from, to api.DeploymentState) {
	reason, ok := deploymentReason(to)
	if !ok {
		return
	}
	a.bus.Emit(reason, EventData{
		Slug:      slug,
		FromState: string(from),
		ToState:   string(to),
	})
}

// PublishValidationOutcome emits the verdict event for a finished run.
func (a *Adapter) PublishValidationOutcome(result *api.ValidationResult) {
	if result == nil {
		return
	}

	reason := ReasonValidationError
	switch result.Status {
	case api.ValidationVerified:
		reason = ReasonValidationVerified
	case api.ValidationFailed:
		reason = ReasonValidationFailed
	}

	a.bus.Emit(reason, EventData{
		Slug:      result.Slug,
		Error:     result.ErrorMessage,
		Duration:  time.Duration(result.ExecutionTimeMs) * time.Millisecond,
		ToolCount: len(result.Tools),
	})
}

// Subscribe returns a channel of events published after the call.
func (a *Adapter) Subscribe() <-chan api.LifecycleEvent {
	return a.bus.Subscribe()
}

// Close shuts the underlying bus down.
func (a *Adapter) Close() error {
	return a.bus.Close()
}

// deploymentReason maps a reached deployment state to its event reason.
func deploymentReason(to api.DeploymentState) (EventReason, bool) {
	switch to {
	case api.DeploymentRequested:
		return ReasonDeploymentRequested, true
	case api.DeploymentActorResolved:
		return ReasonDeploymentActorResolved, true
	case api.DeploymentBuildTriggered:
		return ReasonDeploymentBuildTriggered, true
	case api.DeploymentBuilding:
		return ReasonDeploymentBuilding, true
	case api.DeploymentSucceeded:
		return ReasonDeploymentSucceeded, true
	case api.DeploymentFailed:
		return ReasonDeploymentFailed, true
	default:
		return "", false
	}
}
