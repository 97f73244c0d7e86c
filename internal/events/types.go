package events

import (
	"time"
)

// EventType represents the severity of a lifecycle event.
type EventType string

const (
	// EventTypeNormal indicates normal, non-problematic events.
	EventTypeNormal EventType = "Normal"

	// EventTypeWarning indicates events that may require attention.
	EventTypeWarning EventType = "Warning"
)

// EventReason represents the reason code for an event.
type EventReason string

// Deployment lifecycle event reasons, one per state machine transition.
const (
	// ReasonDeploymentRequested indicates a deployment attempt started.
	ReasonDeploymentRequested EventReason = "DeploymentRequested"

	// ReasonDeploymentActorResolved indicates the remote instance was
	// resolved or created for the slug.
	ReasonDeploymentActorResolved EventReason = "DeploymentActorResolved"

	// ReasonDeploymentBuildTriggered indicates a build was submitted to
	// the hosting platform.
	ReasonDeploymentBuildTriggered EventReason = "DeploymentBuildTriggered"

	// ReasonDeploymentBuilding indicates the polling loop started.
	ReasonDeploymentBuilding EventReason = "DeploymentBuilding"

	// ReasonDeploymentSucceeded indicates the platform reported a
	// successful build and the endpoint is known.
	ReasonDeploymentSucceeded EventReason = "DeploymentSucceeded"

	// ReasonDeploymentFailed indicates the attempt ended without a
	// running instance: platform rejection, failed build, or exhausted
	// polling budget.
	ReasonDeploymentFailed EventReason = "DeploymentFailed"
)

// Validation event reasons, one per verdict.
const (
	// ReasonValidationVerified indicates every pipeline check passed and
	// the plugin reported at least one tool.
	ReasonValidationVerified EventReason = "ValidationVerified"

	// ReasonValidationFailed indicates a pipeline check failed. This is
	// a verdict about the plugin, not a system fault.
	ReasonValidationFailed EventReason = "ValidationFailed"

	// ReasonValidationError indicates the run hit a system fault and no
	// verdict was possible.
	ReasonValidationError EventReason = "ValidationError"
)

// EventData holds contextual information for event message templating.
type EventData struct {
	// Slug is the plugin the event is about.
	Slug string

	// FromState and ToState carry the transition for deployment events.
	FromState string
	ToState   string

	// Endpoint is the connection endpoint for successful deployments.
	Endpoint string

	// Error contains error or failure information for failure events.
	Error string

	// Duration is how long the operation ran.
	Duration time.Duration

	// ToolCount is the number of tools a verified plugin reported.
	ToolCount int
}

// getEventType returns the appropriate EventType for a given EventReason.
func getEventType(reason EventReason) EventType {
	switch reason {
	case ReasonDeploymentFailed,
		ReasonValidationFailed,
		ReasonValidationError:
		return EventTypeWarning
	default:
		return EventTypeNormal
	}
}
