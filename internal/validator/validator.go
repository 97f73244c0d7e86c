package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const subsystem = "Validator"

// probeFunc speaks the tool protocol to an installed plugin and returns
// the tools it reported. Swappable in tests.
type probeFunc func(ctx context.Context, installation *api.Installation) ([]api.Tool, error)

// Validator runs validation pipelines with bounded concurrency.
type Validator struct {
	installTimeout   time.Duration
	handshakeTimeout time.Duration
	sem              chan struct{}
	probe            probeFunc
	now              func() time.Time
}

// New creates a validator from configuration.
func New(cfg config.ValidatorConfig) *Validator {
	installTimeout := time.Duration(cfg.InstallTimeoutSeconds) * time.Second
	if installTimeout <= 0 {
		installTimeout = 60 * time.Second
	}
	handshakeTimeout := time.Duration(cfg.HandshakeTimeoutSeconds) * time.Second
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Validator{
		installTimeout:   installTimeout,
		handshakeTimeout: handshakeTimeout,
		sem:              make(chan struct{}, maxConcurrent),
		probe:            stdioProbe,
		now:              time.Now,
	}
}

// Validate runs the full pipeline for one slug. A failed verdict is a
// normal result; the error return is reserved for faults that prevented
// producing any verdict, such as an unknown slug.
func (v *Validator) Validate(ctx context.Context, slug string) (*api.ValidationResult, error) {
	select {
	case v.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, api.WrapOperationError(api.ErrorKindInternal, "validation canceled while queued", ctx.Err())
	}
	defer func() { <-v.sem }()

	registryHandler := api.GetRegistry()
	installerHandler := api.GetInstaller()
	if registryHandler == nil || installerHandler == nil {
		return nil, api.NewOperationError(api.ErrorKindInternal, "validator dependencies not registered")
	}

	descriptor, err := registryHandler.GetPlugin(ctx, slug)
	if err != nil {
		return nil, err
	}

	started := v.now()
	logging.Info(subsystem, "Validating plugin %s (%s artifact)", slug, descriptor.Artifact)

	result := &api.ValidationResult{Slug: slug, Status: api.ValidationFailed}

	// Step 1: is the declared source location alive at all?
	reachable := registryHandler.ProbeSource(ctx, descriptor)
	result.Checks.RepoReachable = &reachable
	if !reachable {
		result.ErrorMessage = fmt.Sprintf("source for %q did not answer", slug)
		return v.finish(result, started)
	}

	// Step 2: materialize the artifact under its own budget.
	installCtx, cancelInstall := context.WithTimeout(ctx, v.installTimeout)
	installation, err := installerHandler.Install(installCtx, descriptor)
	cancelInstall()
	if err != nil {
		if api.KindOf(err) == api.ErrorKindInstall {
			installable := false
			result.Checks.Installable = &installable
			result.ErrorMessage = err.Error()
		} else {
			result.Status = api.ValidationError
			result.ErrorMessage = fmt.Sprintf("install step could not run: %v", err)
		}
		return v.finish(result, started)
	}
	installable := true
	result.Checks.Installable = &installable

	// From here the attempt dir exists: remove it on every exit path.
	defer installation.Cleanup()

	// Steps 3 and 4: handshake, then tool enumeration, sharing the
	// handshake budget. The probe kills the child before returning.
	probeCtx, cancelProbe := context.WithTimeout(ctx, v.handshakeTimeout)
	tools, probeErr := v.probe(probeCtx, installation)
	timedOut := errors.Is(probeCtx.Err(), context.DeadlineExceeded)
	cancelProbe()
	if probeErr != nil {
		switch {
		case timedOut:
			compliant := false
			result.Checks.ProtocolCompliant = &compliant
			result.ErrorMessage = fmt.Sprintf("plugin %q did not answer the handshake within %s", slug, v.handshakeTimeout)
		case ctx.Err() != nil:
			result.Status = api.ValidationError
			result.ErrorMessage = "validation canceled before the handshake finished"
		default:
			compliant := false
			result.Checks.ProtocolCompliant = &compliant
			result.ErrorMessage = fmt.Sprintf("plugin %q broke the protocol: %v", slug, probeErr)
		}
		return v.finish(result, started)
	}
	compliant := true
	result.Checks.ProtocolCompliant = &compliant

	enumerated := len(tools) > 0
	result.Checks.ToolsEnumerated = &enumerated
	if !enumerated {
		result.ErrorMessage = fmt.Sprintf("plugin %q reported no tools", slug)
		return v.finish(result, started)
	}

	result.Tools = tools
	result.Status = api.ValidationVerified
	return v.finish(result, started)
}

func (v *Validator) finish(result *api.ValidationResult, started time.Time) (*api.ValidationResult, error) {
	result.ExecutionTimeMs = v.now().Sub(started).Milliseconds()
	logging.Info(subsystem, "Validation of %s finished: %s in %dms", result.Slug, result.Status, result.ExecutionTimeMs)
	return result, nil
}
