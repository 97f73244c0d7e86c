package deployer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/internal/hosting"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBudget       = 180 * time.Second
	defaultNamePrefix   = "oc"

	// terminalWriteTimeout bounds the record write that lands the final
	// failed state after the caller's context is already gone.
	terminalWriteTimeout = 5 * time.Second
)

// Deployer drives deployment attempts against the hosting platform and keeps
// the per-slug DeploymentRecord current.
type Deployer struct {
	platform hosting.Platform
	store    RecordStore

	pollInterval time.Duration
	budget       time.Duration
	namePrefix   string

	mu       sync.Mutex
	inFlight map[string]struct{}
	cb       StateChange

	now func() time.Time
}

// New builds a Deployer from configuration. The platform client and the
// record store are owned by the caller.
func New(cfg config.DeployerConfig, platform hosting.Platform, store RecordStore) *Deployer {
	d := &Deployer{
		platform:     platform,
		store:        store,
		pollInterval: defaultPollInterval,
		budget:       defaultBudget,
		namePrefix:   defaultNamePrefix,
		inFlight:     make(map[string]struct{}),
		now:          time.Now,
	}
	if cfg.PollIntervalSeconds > 0 {
		d.pollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	if cfg.BudgetSeconds > 0 {
		d.budget = time.Duration(cfg.BudgetSeconds) * time.Second
	}
	if cfg.InstanceNamePrefix != "" {
		d.namePrefix = cfg.InstanceNamePrefix
	}
	return d
}

// SetStateChangeCallback registers a subscriber for attempt state
// transitions. Set it during wiring, before the first Deploy.
func (d *Deployer) SetStateChangeCallback(cb StateChange) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

// Deploy walks one deployment attempt through the state machine and returns
// the resulting record. A failed build, a platform rejection, or an exhausted
// polling budget all return a failed record with a nil error; only
// precondition faults (unverified plugin, malformed credential) and store
// faults return errors, and those never touch the record store.
//
// The credential is used for exactly one platform call and is gone when
// Deploy returns; the record keeps only its fingerprint.
func (d *Deployer) Deploy(ctx context.Context, slug string, credential string) (*api.DeploymentRecord, error) {
	if err := api.ValidateCredentialSyntax(credential); err != nil {
		return nil, err
	}
	registry := api.GetRegistry()
	if registry == nil {
		return nil, api.NewOperationError(api.ErrorKindInternal, "no registry handler registered")
	}

	validation, err := registry.GetValidation(ctx, slug)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewOperationError(api.ErrorKindDeploymentFailed,
				fmt.Sprintf("plugin %q has never been validated; validate it before deploying", slug))
		}
		return nil, err
	}
	if validation.Status != api.ValidationVerified {
		return nil, api.NewOperationError(api.ErrorKindDeploymentFailed,
			fmt.Sprintf("plugin %q is not verified (validation status is %q)", slug, validation.Status))
	}

	if err := d.claim(slug); err != nil {
		return nil, err
	}
	defer d.release(slug)

	fingerprint := api.CredentialFingerprint(credential)
	instanceName := d.instanceName(slug)
	att := newAttempt(slug, d.callback())

	startedAt := d.now().UTC()
	record := &api.DeploymentRecord{
		Slug:                       slug,
		BuildStatus:                api.DeploymentRequested,
		OwnerCredentialFingerprint: fingerprint,
		CreatedAt:                  startedAt,
		LastPolledAt:               startedAt,
	}
	if err := d.persist(ctx, record); err != nil {
		return nil, err
	}
	att.advance(api.DeploymentRequested)
	logging.Info("Deployer", "Deploying plugin %s as instance %s", slug, instanceName)
	logging.Audit(logging.AuditEvent{
		Action:  "deploy.requested",
		Outcome: "started",
		Actor:   fingerprint,
		Target:  slug,
	})

	// The credential crosses the process boundary exactly once, here.
	instanceID, err := d.platform.ResolveOrCreate(ctx, instanceName, credential)
	if err != nil {
		return d.fail(ctx, att, record, err.Error())
	}
	record.RemoteInstanceID = instanceID
	if err := d.advance(ctx, att, record, api.DeploymentActorResolved); err != nil {
		return nil, err
	}

	buildID, err := d.platform.TriggerBuild(ctx, instanceID)
	if err != nil {
		return d.fail(ctx, att, record, err.Error())
	}
	if err := d.advance(ctx, att, record, api.DeploymentBuildTriggered); err != nil {
		return nil, err
	}
	if err := d.advance(ctx, att, record, api.DeploymentBuilding); err != nil {
		return nil, err
	}

	return d.poll(ctx, att, record, instanceID, buildID)
}

// GetDeployment returns the stored record for a slug.
func (d *Deployer) GetDeployment(ctx context.Context, slug string) (*api.DeploymentRecord, error) {
	return d.store.Get(ctx, slug)
}

// poll watches the build until the platform reports a terminal state or the
// wall-clock budget runs out. Status and endpoint lookup errors are treated
// as transient: the budget clock, not any single failed poll, decides the
// outcome, so the caller always gets a definite answer.
func (d *Deployer) poll(ctx context.Context, att *attempt, record *api.DeploymentRecord, instanceID, buildID string) (*api.DeploymentRecord, error) {
	budgetCtx, cancel := context.WithTimeout(ctx, d.budget)
	defer cancel()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	lastState := hosting.BuildState("unknown")
	for {
		select {
		case <-budgetCtx.Done():
			message := fmt.Sprintf("deployment did not reach a terminal state within %s, last observed build state %s", d.budget, lastState)
			if ctx.Err() != nil {
				message = "deployment canceled before the build finished"
			}
			finishCtx, finishCancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
			defer finishCancel()
			return d.fail(finishCtx, att, record, message)

		case <-ticker.C:
			record.LastPolledAt = d.now().UTC()
			status, err := d.platform.GetBuildStatus(budgetCtx, buildID)
			if err != nil {
				logging.Warn("Deployer", "Build status poll for %s failed: %v", record.Slug, err)
				continue
			}
			lastState = status.State

			switch status.State {
			case hosting.BuildPending:
				if err := d.persist(budgetCtx, record); err != nil {
					return nil, err
				}

			case hosting.BuildSucceeded:
				endpoint, err := d.platform.GetEndpoint(budgetCtx, instanceID)
				if err != nil {
					logging.Warn("Deployer", "Endpoint lookup for %s failed, retrying: %v", record.Slug, err)
					continue
				}
				att.advance(api.DeploymentSucceeded)
				record.BuildStatus = api.DeploymentSucceeded
				record.ConnectionEndpoint = endpoint
				record.FailureMessage = ""
				if err := d.persist(budgetCtx, record); err != nil {
					return nil, err
				}
				logging.Info("Deployer", "Deployment of %s succeeded, instance %s reachable at %s",
					record.Slug, instanceID, endpoint)
				logging.Audit(logging.AuditEvent{
					Action:  "deploy.finished",
					Outcome: "succeeded",
					Actor:   record.OwnerCredentialFingerprint,
					Target:  record.Slug,
				})
				return record, nil

			case hosting.BuildFailed:
				message := "hosting platform reported a failed build"
				if status.Detail != "" {
					message = fmt.Sprintf("%s: %s", message, status.Detail)
				}
				return d.fail(budgetCtx, att, record, message)
			}
		}
	}
}

// fail lands the attempt in the failed state and persists the record. The
// remote instance is left in place so the caller can inspect or retry it.
func (d *Deployer) fail(ctx context.Context, att *attempt, record *api.DeploymentRecord, message string) (*api.DeploymentRecord, error) {
	att.advance(api.DeploymentFailed)
	record.BuildStatus = api.DeploymentFailed
	record.ConnectionEndpoint = ""
	record.FailureMessage = message
	if err := d.persist(ctx, record); err != nil {
		return nil, err
	}
	logging.Warn("Deployer", "Deployment of %s failed: %s", record.Slug, message)
	logging.Audit(logging.AuditEvent{
		Action:  "deploy.finished",
		Outcome: "failed",
		Actor:   record.OwnerCredentialFingerprint,
		Target:  record.Slug,
	})
	return record, nil
}

func (d *Deployer) advance(ctx context.Context, att *attempt, record *api.DeploymentRecord, to api.DeploymentState) error {
	att.advance(to)
	record.BuildStatus = to
	return d.persist(ctx, record)
}

func (d *Deployer) persist(ctx context.Context, record *api.DeploymentRecord) error {
	if err := d.store.Put(ctx, record); err != nil {
		return api.WrapOperationError(api.ErrorKindInternal, "persist deployment record", err)
	}
	return nil
}

// claim marks a slug as having a deployment in flight so concurrent attempts
// for the same slug cannot race the state machine.
func (d *Deployer) claim(slug string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[slug]; busy {
		return api.NewOperationError(api.ErrorKindDeploymentFailed,
			fmt.Sprintf("a deployment for plugin %q is already in progress", slug))
	}
	d.inFlight[slug] = struct{}{}
	return nil
}

func (d *Deployer) release(slug string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, slug)
}

func (d *Deployer) callback() StateChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cb
}

// instanceName derives the deterministic remote instance name for a slug.
// Retried deployments resolve the same instance instead of creating
// duplicates.
func (d *Deployer) instanceName(slug string) string {
	return d.namePrefix + "-" + strings.ReplaceAll(slug, "/", "-")
}
