package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/cache"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/internal/metrics"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const subsystem = "Router"

// Default cache lifetimes per operation. Search results age fastest;
// validation verdicts of an unchanged artifact keep for a day.
const (
	defaultSearchTTL   = 5 * time.Minute
	defaultConfigTTL   = time.Hour
	defaultValidateTTL = 24 * time.Hour
)

// Router is the single entry point for operations. It enforces, in order:
// shape validation, the deploy rate ceiling, cache lookup, slug resolution,
// the billing charge, dispatch, and the cache write-back. Malformed input,
// unknown slugs, and rate-limited calls never reach the ledger; deploy
// results never reach the cache.
type Router struct {
	ttls    map[api.Event]time.Duration
	metrics *metrics.Metrics

	// newKey mints fallback idempotency keys for validate and deploy.
	// Replaceable in tests.
	newKey func() string
	now    func() time.Time
}

var _ api.RouterHandler = (*Router)(nil)

// New creates a router with cache lifetimes from configuration. A nil
// metrics handle disables recording.
func New(cfg config.CacheConfig, m *metrics.Metrics) *Router {
	return &Router{
		ttls: map[api.Event]time.Duration{
			api.EventSearch:   ttlOrDefault(cfg.SearchTTLSeconds, defaultSearchTTL),
			api.EventConfig:   ttlOrDefault(cfg.ConfigTTLSeconds, defaultConfigTTL),
			api.EventValidate: ttlOrDefault(cfg.ValidateTTLSeconds, defaultValidateTTL),
		},
		metrics: m,
		newKey:  uuid.NewString,
		now:     time.Now,
	}
}

func ttlOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Execute runs one operation to a response envelope. It never returns a Go
// error: system faults come back as success false with kind internal.
func (r *Router) Execute(ctx context.Context, req api.Request) *api.Response {
	started := r.now()
	resp := r.run(ctx, &req)
	elapsed := r.now().Sub(started)
	resp.Meta.ExecutionTimeMs = elapsed.Milliseconds()

	outcome := "success"
	if !resp.Success {
		outcome = string(resp.Error.Kind)
	}
	r.metrics.RecordOperation(eventLabel(req.Event), outcome, elapsed)
	return resp
}

func (r *Router) run(ctx context.Context, req *api.Request) *api.Response {
	// Step 1: shape validation. Nothing malformed is ever billed.
	if opErr := validateShape(req); opErr != nil {
		return failure(req.Event, 0, opErr)
	}

	// Step 2: the deploy ceiling. Exceeding it is terminal and unbilled.
	if req.Event == api.EventDeploy {
		if opErr := r.checkRateLimit(ctx, req); opErr != nil {
			return failure(req.Event, 0, opErr)
		}
	}

	// Step 3: cache lookup. Deploys mutate remote state and must execute
	// every time they are requested, so they skip the cache entirely.
	cacheable := req.Event != api.EventDeploy
	cacheKey := ""
	if cacheable {
		cacheKey = cache.Key(req.Event, cacheParams(req))
		if resp, ok := r.cacheLookup(ctx, req.Event, cacheKey); ok {
			return resp
		}
	}

	// Slug resolution and wiring checks stay ahead of the charge: an
	// unknown slug or a missing backend is never billed.
	descriptor, err := r.resolve(ctx, req)
	if err != nil {
		return failure(req.Event, 0, err)
	}

	// Step 4: the charge commits strictly before the work begins.
	ledger := api.GetLedger()
	if ledger == nil {
		return failure(req.Event, 0, api.NewOperationError(api.ErrorKindInternal, "billing ledger not available"))
	}
	receipt, err := ledger.Charge(ctx, req.Event, r.idempotencyKey(req))
	if err != nil {
		r.metrics.RecordBillingCharge(string(req.Event), "error")
		return failure(req.Event, 0, err)
	}
	if receipt.Duplicate {
		r.metrics.RecordBillingCharge(string(req.Event), "duplicate")
		if resp, ok := r.replay(ctx, req, cacheKey); ok {
			return resp
		}
		// The prior result is gone. The key was already paid for, so the
		// work re-runs without a second charge.
		logging.Debug(subsystem, "Duplicate %s charge with no stored result, re-executing", req.Event)
	} else {
		r.metrics.RecordBillingCharge(string(req.Event), "charged")
	}

	// Step 5: dispatch.
	resp := r.dispatch(ctx, req, descriptor, receipt.CostCents)

	// Step 6: cache write on success for cacheable operations.
	if cacheable && resp.Success {
		r.cacheWrite(ctx, req.Event, cacheKey, resp)
	}
	return resp
}

// checkRateLimit applies the deploy ceiling. A missing limiter and a
// limiter backend fault both fail open; the limiter records only allowed
// attempts, so denied calls never consume budget.
func (r *Router) checkRateLimit(ctx context.Context, req *api.Request) *api.OperationError {
	limiter := api.GetRateLimit()
	if limiter == nil {
		return nil
	}
	decision := limiter.Allow(ctx, rateLimitKey(req))
	if decision.Allowed {
		return nil
	}
	message := "deploy rate limit exceeded"
	if decision.RetryAfter > 0 {
		message = fmt.Sprintf("deploy rate limit exceeded, retry in %s", decision.RetryAfter.Round(time.Second))
	}
	return api.NewOperationError(api.ErrorKindRateLimit, message)
}

// resolve checks wiring and resolves the slug to its descriptor before any
// charge. Search has no slug; its descriptor is nil.
func (r *Router) resolve(ctx context.Context, req *api.Request) (*api.PluginDescriptor, error) {
	registry := api.GetRegistry()
	if registry == nil {
		return nil, api.NewOperationError(api.ErrorKindInternal, "plugin registry not available")
	}
	switch req.Event {
	case api.EventValidate:
		if api.GetValidator() == nil {
			return nil, api.NewOperationError(api.ErrorKindInternal, "validator not available")
		}
	case api.EventDeploy:
		if api.GetDeployer() == nil {
			return nil, api.NewOperationError(api.ErrorKindInternal, "deployer not available")
		}
	}
	if req.Event == api.EventSearch {
		return nil, nil
	}
	return registry.GetPlugin(ctx, req.Slug)
}

// idempotencyKey picks the ledger key for the request. Search and config
// derive stable content keys, so logically identical lookups share one
// charge. Validate and deploy mint a fresh key per call: each run spends
// real compute, and only a caller-supplied key makes a retry idempotent.
func (r *Router) idempotencyKey(req *api.Request) string {
	if req.IdempotencyKey != "" {
		return req.IdempotencyKey
	}
	switch req.Event {
	case api.EventSearch:
		return api.DeriveIdempotencyKey(req.Event, "", req.Query, req.Filters, "")
	case api.EventConfig:
		return api.DeriveIdempotencyKey(req.Event, req.Slug, "", nil, "")
	default:
		return r.newKey()
	}
}

// cacheLookup serves a prior result when one is stored. Hits charge
// nothing: the cache exists so repeated work costs neither compute nor
// money.
func (r *Router) cacheLookup(ctx context.Context, event api.Event, key string) (*api.Response, bool) {
	store := api.GetCache()
	if store == nil {
		return nil, false
	}
	payload, ok := store.Get(ctx, key)
	if !ok {
		r.metrics.RecordCacheRequest("miss")
		return nil, false
	}
	var stored api.Response
	if err := json.Unmarshal(payload, &stored); err != nil {
		logging.Warn(subsystem, "Discarding undecodable cache entry for %s", event)
		r.metrics.RecordCacheRequest("miss")
		return nil, false
	}
	r.metrics.RecordCacheRequest("hit")
	return &api.Response{
		Success: true,
		Event:   event,
		Data:    stored.Data,
		Meta:    api.ResponseMeta{Cached: true},
	}, true
}

// replay serves the prior result for a duplicate idempotency key: the cache
// entry for cacheable operations, the stored deployment record for deploys.
// A miss means the prior result is gone and the caller reports false.
func (r *Router) replay(ctx context.Context, req *api.Request, cacheKey string) (*api.Response, bool) {
	if req.Event != api.EventDeploy {
		return r.cacheLookup(ctx, req.Event, cacheKey)
	}
	deployer := api.GetDeployer()
	if deployer == nil {
		return nil, false
	}
	record, err := deployer.GetDeployment(ctx, req.Slug)
	if err != nil {
		if !api.IsNotFound(err) {
			logging.Warn(subsystem, "Could not replay deployment for %s: %v", req.Slug, err)
		}
		return nil, false
	}
	return &api.Response{
		Success: true,
		Event:   req.Event,
		Data:    record,
		Meta:    api.ResponseMeta{Cached: true},
	}, true
}

// dispatch runs the operation itself. The event set is closed; validateShape
// already rejected everything else.
func (r *Router) dispatch(ctx context.Context, req *api.Request, descriptor *api.PluginDescriptor, costCents int64) *api.Response {
	switch req.Event {
	case api.EventSearch:
		return r.dispatchSearch(ctx, req, costCents)
	case api.EventConfig:
		return r.dispatchConfig(ctx, req, descriptor, costCents)
	case api.EventValidate:
		return r.dispatchValidate(ctx, req, costCents)
	case api.EventDeploy:
		return r.dispatchDeploy(ctx, req, costCents)
	default:
		return failure(req.Event, costCents, api.NewOperationError(api.ErrorKindInternal, "unhandled operation"))
	}
}

func (r *Router) dispatchSearch(ctx context.Context, req *api.Request, costCents int64) *api.Response {
	summaries, err := api.GetRegistry().Search(ctx, req.Query, req.Filters)
	if err != nil {
		return failure(req.Event, costCents, err)
	}
	if summaries == nil {
		summaries = []api.PluginSummary{}
	}
	return success(req.Event, costCents, api.SearchData{Plugins: summaries, Total: len(summaries)})
}

func (r *Router) dispatchConfig(ctx context.Context, req *api.Request, descriptor *api.PluginDescriptor, costCents int64) *api.Response {
	data := api.ConfigData{Descriptor: descriptor}

	// Verdict and deployment detail are best-effort enrichment; a plugin
	// that was never validated or deployed simply has none.
	if verdict, err := api.GetRegistry().GetValidation(ctx, req.Slug); err == nil {
		data.Validation = verdict
	} else if !api.IsNotFound(err) {
		logging.Warn(subsystem, "Could not load validation verdict for %s: %v", req.Slug, err)
	}
	if deployer := api.GetDeployer(); deployer != nil {
		if record, err := deployer.GetDeployment(ctx, req.Slug); err == nil {
			data.Deployment = record
		} else if !api.IsNotFound(err) {
			logging.Warn(subsystem, "Could not load deployment record for %s: %v", req.Slug, err)
		}
	}
	return success(req.Event, costCents, data)
}

func (r *Router) dispatchValidate(ctx context.Context, req *api.Request, costCents int64) *api.Response {
	result, err := api.GetValidator().Validate(ctx, req.Slug)
	if err != nil {
		return failure(req.Event, costCents, err)
	}
	r.metrics.RecordValidationChecks(result.Checks)

	// The verdict is persisted to the registry and announced on the bus.
	// Neither failing changes the caller's result.
	if err := api.GetRegistry().PublishValidation(ctx, result); err != nil {
		logging.Warn(subsystem, "Could not publish validation verdict for %s: %v", req.Slug, err)
	}
	if bus := api.GetEventBus(); bus != nil {
		bus.PublishValidationOutcome(result)
	}
	return success(req.Event, costCents, result)
}

func (r *Router) dispatchDeploy(ctx context.Context, req *api.Request, costCents int64) *api.Response {
	r.metrics.DeployStarted()
	defer r.metrics.DeployFinished()

	record, err := api.GetDeployer().Deploy(ctx, req.Slug, req.Credential)
	if err != nil {
		return failure(req.Event, costCents, err)
	}
	return success(req.Event, costCents, record)
}

// cacheWrite stores the finished envelope. Read-back uses only the data
// payload; cost and meta are always recomputed per call.
func (r *Router) cacheWrite(ctx context.Context, event api.Event, key string, resp *api.Response) {
	store := api.GetCache()
	if store == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		logging.Warn(subsystem, "Could not serialize %s result for caching: %v", event, err)
		return
	}
	store.Set(ctx, key, payload, r.ttls[event])
}

func success(event api.Event, costCents int64, data interface{}) *api.Response {
	return &api.Response{
		Success: true,
		Event:   event,
		Cost:    api.CostFromCents(costCents),
		Data:    data,
	}
}

// failure folds an error into the envelope. Only an OperationError's message
// is shown to the caller; any other error text stays in server logs.
func failure(event api.Event, costCents int64, err error) *api.Response {
	kind := api.KindOf(err)
	message := "the system could not complete the request"
	var opErr *api.OperationError
	if errors.As(err, &opErr) {
		message = opErr.Message
	} else {
		logging.Error(subsystem, err, "Internal fault during %s", event)
	}
	return &api.Response{
		Success: false,
		Event:   event,
		Cost:    api.CostFromCents(costCents),
		Error:   &api.ResponseError{Message: message, Kind: kind},
	}
}

func eventLabel(event api.Event) string {
	switch event {
	case api.EventSearch, api.EventConfig, api.EventValidate, api.EventDeploy:
		return string(event)
	default:
		return "invalid"
	}
}
