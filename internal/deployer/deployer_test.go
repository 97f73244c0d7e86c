package deployer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/internal/hosting"
)

const (
	testSlug       = "acme/web-scraper"
	testCredential = "svc-0123456789abcdef0123456789abcdef"
)

type buildAnswer struct {
	status hosting.BuildStatus
	err    error
}

// fakePlatform implements hosting.Platform for tests. The build status
// sequence is consumed call by call; the last answer repeats once the
// sequence is exhausted.
type fakePlatform struct {
	mu           sync.Mutex
	instances    map[string]string
	creates      int
	resolves     int
	credentials  []string
	resolveErr   error
	triggerErr   error
	builds       int
	buildSeq     []buildAnswer
	buildCalls   int
	endpointErrs int
	gate         chan struct{}
}

func newFakePlatform(seq ...buildAnswer) *fakePlatform {
	if len(seq) == 0 {
		seq = []buildAnswer{{status: hosting.BuildStatus{State: hosting.BuildSucceeded}}}
	}
	return &fakePlatform{instances: make(map[string]string), buildSeq: seq}
}

func (p *fakePlatform) ResolveOrCreate(ctx context.Context, name, credential string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolves++
	p.credentials = append(p.credentials, credential)
	if p.resolveErr != nil {
		return "", p.resolveErr
	}
	id, ok := p.instances[name]
	if !ok {
		p.creates++
		id = fmt.Sprintf("inst-%d", len(p.instances)+1)
		p.instances[name] = id
	}
	return id, nil
}

func (p *fakePlatform) TriggerBuild(ctx context.Context, instanceID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.triggerErr != nil {
		return "", p.triggerErr
	}
	p.builds++
	return fmt.Sprintf("build-%d", p.builds), nil
}

func (p *fakePlatform) GetBuildStatus(ctx context.Context, buildID string) (hosting.BuildStatus, error) {
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return hosting.BuildStatus{}, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.buildCalls
	if i >= len(p.buildSeq) {
		i = len(p.buildSeq) - 1
	}
	p.buildCalls++
	return p.buildSeq[i].status, p.buildSeq[i].err
}

func (p *fakePlatform) GetEndpoint(ctx context.Context, instanceID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.endpointErrs > 0 {
		p.endpointErrs--
		return "", errors.New("instance not built")
	}
	return "https://" + instanceID + ".plugins.example.net", nil
}

type fakeRegistry struct {
	validation *api.ValidationResult
	getErr     error
}

func (f *fakeRegistry) GetPlugin(ctx context.Context, slug string) (*api.PluginDescriptor, error) {
	return nil, api.NewOperationError(api.ErrorKindNotFound, "not used in deployer tests")
}

func (f *fakeRegistry) Search(ctx context.Context, query string, filters map[string]string) ([]api.PluginSummary, error) {
	return nil, nil
}

func (f *fakeRegistry) GetValidation(ctx context.Context, slug string) (*api.ValidationResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.validation == nil {
		return nil, api.NewOperationError(api.ErrorKindNotFound,
			fmt.Sprintf("no validation on record for plugin %q", slug))
	}
	return f.validation, nil
}

func (f *fakeRegistry) PublishValidation(ctx context.Context, result *api.ValidationResult) error {
	return nil
}

func (f *fakeRegistry) ProbeSource(ctx context.Context, descriptor *api.PluginDescriptor) bool {
	return true
}

func verifiedRegistry() *fakeRegistry {
	return &fakeRegistry{validation: &api.ValidationResult{Slug: testSlug, Status: api.ValidationVerified}}
}

func newTestDeployer(t *testing.T, registry *fakeRegistry, platform *fakePlatform) (*Deployer, *MemoryRecordStore) {
	t.Helper()
	api.ResetForTest()
	t.Cleanup(api.ResetForTest)
	api.RegisterRegistry(registry)

	store := NewMemoryRecordStore()
	d := New(config.DeployerConfig{InstanceNamePrefix: "oc"}, platform, store)
	d.pollInterval = 2 * time.Millisecond
	d.budget = 500 * time.Millisecond
	return d, store
}

func TestDeployVerifiedPluginSucceeds(t *testing.T) {
	platform := newFakePlatform(
		buildAnswer{status: hosting.BuildStatus{State: hosting.BuildPending}},
		buildAnswer{status: hosting.BuildStatus{State: hosting.BuildPending}},
		buildAnswer{status: hosting.BuildStatus{State: hosting.BuildSucceeded}},
	)
	d, store := newTestDeployer(t, verifiedRegistry(), platform)

	var transitions []string
	var transitionsMu sync.Mutex
	d.SetStateChangeCallback(func(slug string, from, to api.DeploymentState) {
		transitionsMu.Lock()
		defer transitionsMu.Unlock()
		transitions = append(transitions, fmt.Sprintf("%s->%s", from, to))
	})

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, api.DeploymentSucceeded, record.BuildStatus)
	assert.Equal(t, "inst-1", record.RemoteInstanceID)
	assert.Equal(t, "https://inst-1.plugins.example.net", record.ConnectionEndpoint)
	assert.Equal(t, api.CredentialFingerprint(testCredential), record.OwnerCredentialFingerprint)
	assert.Empty(t, record.FailureMessage)
	assert.False(t, record.LastPolledAt.Before(record.CreatedAt))

	stored, err := store.Get(context.Background(), testSlug)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentSucceeded, stored.BuildStatus)

	transitionsMu.Lock()
	defer transitionsMu.Unlock()
	assert.Equal(t, []string{
		"->requested",
		"requested->actorResolved",
		"actorResolved->buildTriggered",
		"buildTriggered->building",
		"building->succeeded",
	}, transitions)
}

func TestDeployRequiresVerifiedValidation(t *testing.T) {
	registry := &fakeRegistry{validation: &api.ValidationResult{Slug: testSlug, Status: api.ValidationFailed}}
	platform := newFakePlatform()
	d, store := newTestDeployer(t, registry, platform)

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, api.IsKind(err, api.ErrorKindDeploymentFailed))
	assert.Contains(t, err.Error(), "not verified")
	assert.Equal(t, 0, platform.resolves, "an unverified plugin must never reach the platform")
	assert.Equal(t, 0, store.Len(), "precondition failures must not create records")
}

func TestDeployNeverValidatedPlugin(t *testing.T) {
	platform := newFakePlatform()
	d, store := newTestDeployer(t, &fakeRegistry{}, platform)

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, api.IsKind(err, api.ErrorKindDeploymentFailed))
	assert.Contains(t, err.Error(), "never been validated")
	assert.Equal(t, 0, platform.resolves)
	assert.Equal(t, 0, store.Len())
}

func TestDeployMalformedCredentialStopsBeforePlatform(t *testing.T) {
	platform := newFakePlatform()
	d, store := newTestDeployer(t, verifiedRegistry(), platform)

	record, err := d.Deploy(context.Background(), testSlug, "short")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, api.IsKind(err, api.ErrorKindCredential))
	assert.Equal(t, 0, platform.resolves, "a malformed credential must never leave the process")
	assert.Equal(t, 0, store.Len())
}

func TestDeployTwiceResolvesSameInstance(t *testing.T) {
	platform := newFakePlatform()
	d, _ := newTestDeployer(t, verifiedRegistry(), platform)

	first, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)
	second, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)

	assert.Equal(t, first.RemoteInstanceID, second.RemoteInstanceID)
	assert.Equal(t, 1, platform.creates, "retried deployments must reuse the resolved instance")
	assert.Equal(t, 2, platform.resolves)
}

func TestDeployBuildFailureReturnsFailedRecord(t *testing.T) {
	platform := newFakePlatform(
		buildAnswer{status: hosting.BuildStatus{State: hosting.BuildPending}},
		buildAnswer{status: hosting.BuildStatus{State: hosting.BuildFailed, Detail: "out of build minutes"}},
	)
	d, store := newTestDeployer(t, verifiedRegistry(), platform)

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err, "a failed build is a normal outcome, not an error")
	require.NotNil(t, record)

	assert.Equal(t, api.DeploymentFailed, record.BuildStatus)
	assert.Contains(t, record.FailureMessage, "out of build minutes")
	assert.Empty(t, record.ConnectionEndpoint)

	stored, err := store.Get(context.Background(), testSlug)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentFailed, stored.BuildStatus)
}

func TestDeployResolveFailureReturnsFailedRecord(t *testing.T) {
	platform := newFakePlatform()
	platform.resolveErr = errors.New("hosting platform refused instance resolution: 403 Forbidden")
	d, _ := newTestDeployer(t, verifiedRegistry(), platform)

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, api.DeploymentFailed, record.BuildStatus)
	assert.Contains(t, record.FailureMessage, "403")
	assert.Empty(t, record.RemoteInstanceID)
	assert.Empty(t, record.ConnectionEndpoint)
}

func TestDeployBudgetExhaustionFailsDefinitively(t *testing.T) {
	platform := newFakePlatform(buildAnswer{status: hosting.BuildStatus{State: hosting.BuildPending}})
	d, store := newTestDeployer(t, verifiedRegistry(), platform)
	d.budget = 30 * time.Millisecond

	started := time.Now()
	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, api.DeploymentFailed, record.BuildStatus)
	assert.Contains(t, record.FailureMessage, "did not reach a terminal state")
	assert.Less(t, time.Since(started), 2*time.Second)

	stored, err := store.Get(context.Background(), testSlug)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentFailed, stored.BuildStatus)
}

func TestDeployCanceledMidBuild(t *testing.T) {
	platform := newFakePlatform(buildAnswer{status: hosting.BuildStatus{State: hosting.BuildPending}})
	d, _ := newTestDeployer(t, verifiedRegistry(), platform)
	d.budget = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	record, err := d.Deploy(ctx, testSlug, testCredential)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, api.DeploymentFailed, record.BuildStatus)
	assert.Contains(t, record.FailureMessage, "canceled")
}

func TestDeployToleratesTransientStatusErrors(t *testing.T) {
	platform := newFakePlatform(
		buildAnswer{err: errors.New("status endpoint flapping")},
		buildAnswer{err: errors.New("status endpoint flapping")},
		buildAnswer{status: hosting.BuildStatus{State: hosting.BuildSucceeded}},
	)
	d, _ := newTestDeployer(t, verifiedRegistry(), platform)

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentSucceeded, record.BuildStatus)
	assert.GreaterOrEqual(t, platform.buildCalls, 3)
}

func TestDeployRetriesEndpointLookup(t *testing.T) {
	platform := newFakePlatform()
	platform.endpointErrs = 1
	d, _ := newTestDeployer(t, verifiedRegistry(), platform)

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentSucceeded, record.BuildStatus)
	assert.Equal(t, "https://inst-1.plugins.example.net", record.ConnectionEndpoint)
}

func TestDeployCredentialTravelsOnceAndIsNeverStored(t *testing.T) {
	platform := newFakePlatform()
	d, store := newTestDeployer(t, verifiedRegistry(), platform)

	record, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)

	require.Len(t, platform.credentials, 1, "the credential crosses the boundary exactly once")
	assert.Equal(t, testCredential, platform.credentials[0])

	assert.NotEqual(t, testCredential, record.OwnerCredentialFingerprint)
	payload, err := json.Marshal(record)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), testCredential)

	stored, err := store.Get(context.Background(), testSlug)
	require.NoError(t, err)
	storedPayload, err := json.Marshal(stored)
	require.NoError(t, err)
	assert.NotContains(t, string(storedPayload), testCredential)
}

func TestDeployConcurrentSameSlugRejected(t *testing.T) {
	platform := newFakePlatform()
	platform.gate = make(chan struct{})
	d, _ := newTestDeployer(t, verifiedRegistry(), platform)
	d.budget = 10 * time.Second

	done := make(chan error, 1)
	go func() {
		_, err := d.Deploy(context.Background(), testSlug, testCredential)
		done <- err
	}()

	require.Eventually(t, func() bool {
		platform.mu.Lock()
		defer platform.mu.Unlock()
		return platform.resolves == 1
	}, time.Second, 5*time.Millisecond, "first deployment should be in flight")

	_, err := d.Deploy(context.Background(), testSlug, testCredential)
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.ErrorKindDeploymentFailed))
	assert.Contains(t, err.Error(), "already in progress")

	close(platform.gate)
	require.NoError(t, <-done)
}

func TestGetDeploymentUnknownSlug(t *testing.T) {
	d, _ := newTestDeployer(t, verifiedRegistry(), newFakePlatform())

	record, err := d.GetDeployment(context.Background(), "acme/never-deployed")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.True(t, api.IsNotFound(err))
}

func TestAdapterRegistersDeployer(t *testing.T) {
	d, _ := newTestDeployer(t, verifiedRegistry(), newFakePlatform())

	NewAPIAdapter(d).Register()
	handler := api.GetDeployer()
	require.NotNil(t, handler)

	record, err := handler.Deploy(context.Background(), testSlug, testCredential)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentSucceeded, record.BuildStatus)

	fetched, err := handler.GetDeployment(context.Background(), testSlug)
	require.NoError(t, err)
	assert.Equal(t, record.RemoteInstanceID, fetched.RemoteInstanceID)
}

func TestAttemptTerminalStateSticks(t *testing.T) {
	var calls int
	att := newAttempt(testSlug, func(slug string, from, to api.DeploymentState) { calls++ })

	att.advance(api.DeploymentActorResolved)
	att.advance(api.DeploymentFailed)
	require.Equal(t, api.DeploymentFailed, att.current())

	att.advance(api.DeploymentSucceeded)
	assert.Equal(t, api.DeploymentFailed, att.current(), "terminal states are final")
	assert.Equal(t, 2, calls)
}

func TestInstanceNameIsDeterministic(t *testing.T) {
	d := New(config.DeployerConfig{InstanceNamePrefix: "oc"}, newFakePlatform(), NewMemoryRecordStore())

	assert.Equal(t, "oc-acme-web-scraper", d.instanceName("acme/web-scraper"))
	assert.Equal(t, d.instanceName(testSlug), d.instanceName(testSlug))
}
