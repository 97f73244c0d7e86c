package api

import "time"

// Event identifies a billable operation kind. The set is closed: the router
// dispatches over it exhaustively and the pricing table covers every member.
type Event string

const (
	EventSearch   Event = "search"
	EventConfig   Event = "config"
	EventValidate Event = "validate"
	EventDeploy   Event = "deploy"
)

// Events lists all operation kinds in dispatch order.
func Events() []Event {
	return []Event{EventSearch, EventConfig, EventValidate, EventDeploy}
}

// ArtifactType distinguishes how a plugin is distributed.
type ArtifactType string

const (
	// ArtifactNPM is a package-manager reference installed with npm.
	ArtifactNPM ArtifactType = "npm"
	// ArtifactImage is a container image reference pulled from a registry.
	ArtifactImage ArtifactType = "image"
)

// PluginDescriptor is the immutable registry record for one plugin.
// It is read-only input to this subsystem and never mutated here.
type PluginDescriptor struct {
	Slug        string       `json:"slug"`
	DisplayName string       `json:"displayName"`
	Artifact    ArtifactType `json:"artifactType"`
	// PackageRef is the npm package reference when Artifact is npm.
	PackageRef string `json:"packageRef,omitempty"`
	// ImageRef is the container image reference when Artifact is image.
	ImageRef string `json:"imageRef,omitempty"`
	// SourceURL is the declared source location probed for reachability.
	SourceURL string `json:"sourceURL,omitempty"`
	// Capabilities are the registry's declared tool names. Advisory only;
	// validation trusts what the plugin actually reports, never this list.
	Capabilities []string `json:"capabilities,omitempty"`
}

// PluginSummary is one registry search hit.
type PluginSummary struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Verified    bool   `json:"verified"`
	Downloads   int64  `json:"downloads,omitempty"`
}

// Tool is one capability a plugin actually reported during validation.
type Tool struct {
	Name string `json:"name"`
	// InputSchema is the tool's parameter schema as reported by the plugin.
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

// ValidationStatus is the overall verdict of one validation run.
type ValidationStatus string

const (
	// ValidationVerified means every check passed and at least one tool
	// was enumerated.
	ValidationVerified ValidationStatus = "verified"
	// ValidationFailed means a pipeline check failed. This is a normal,
	// billable outcome, not a system fault.
	ValidationFailed ValidationStatus = "failed"
	// ValidationError means the run hit an unexpected system fault.
	ValidationError ValidationStatus = "error"
)

// ValidationChecks records each pipeline step in order. A nil entry means
// the step was never attempted (an earlier step failed); false means the
// step ran and failed. The distinction matters for diagnosing why a plugin
// failed.
type ValidationChecks struct {
	RepoReachable     *bool `json:"repoReachable"`
	Installable       *bool `json:"installable"`
	ProtocolCompliant *bool `json:"protocolCompliant"`
	ToolsEnumerated   *bool `json:"toolsEnumerated"`
}

// ValidationResult is produced once per validation run and is immutable
// after creation; re-validation creates a new result.
type ValidationResult struct {
	Slug            string           `json:"slug"`
	Status          ValidationStatus `json:"status"`
	Checks          ValidationChecks `json:"checks"`
	Tools           []Tool           `json:"tools,omitempty"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
}

// DeploymentState is the deployment attempt state machine. Transitions are
// strictly forward: requested, actorResolved, buildTriggered, building, then
// exactly one of succeeded or failed.
type DeploymentState string

const (
	DeploymentRequested      DeploymentState = "requested"
	DeploymentActorResolved  DeploymentState = "actorResolved"
	DeploymentBuildTriggered DeploymentState = "buildTriggered"
	DeploymentBuilding       DeploymentState = "building"
	DeploymentSucceeded      DeploymentState = "succeeded"
	DeploymentFailed         DeploymentState = "failed"
)

// Terminal reports whether the state is an end state.
func (s DeploymentState) Terminal() bool {
	return s == DeploymentSucceeded || s == DeploymentFailed
}

// DeploymentRecord tracks one remote hosted instance. ConnectionEndpoint is
// populated if and only if BuildStatus is succeeded. The record holds a
// one-way credential fingerprint for audit correlation, never the credential.
// Records are created by the deployer, updated only by its polling loop, and
// never deleted by this subsystem.
type DeploymentRecord struct {
	Slug                       string          `json:"slug"`
	RemoteInstanceID           string          `json:"remoteInstanceId"`
	BuildStatus                DeploymentState `json:"buildStatus"`
	ConnectionEndpoint         string          `json:"connectionEndpoint,omitempty"`
	OwnerCredentialFingerprint string          `json:"ownerCredentialFingerprint"`
	CreatedAt                  time.Time       `json:"createdAt"`
	LastPolledAt               time.Time       `json:"lastPolledAt"`
	// FailureMessage carries the last observed platform detail when
	// BuildStatus is failed.
	FailureMessage string `json:"failureMessage,omitempty"`
}

// Receipt is the outcome of one ledger charge attempt.
type Receipt struct {
	Event Event `json:"event"`
	// CostCents is the amount actually charged. Zero when Duplicate.
	CostCents int64 `json:"costCents"`
	// Duplicate is true when the idempotency key was already charged;
	// the caller must return the previously cached result instead of
	// re-executing.
	Duplicate bool      `json:"duplicate"`
	ChargedAt time.Time `json:"chargedAt"`
}

// RateDecision is the outcome of one rate limit check.
type RateDecision struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// LifecycleEvent is one emitted domain event: a deployment state transition
// or a validation verdict. Type is "Normal" or "Warning".
type LifecycleEvent struct {
	Reason    string    `json:"reason"`
	Type      string    `json:"type"`
	Slug      string    `json:"slug,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
