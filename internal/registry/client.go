package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const sourceProbeTimeout = 5 * time.Second

// transientError marks a failure worth retrying: the request never got a
// clean answer from the registry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Client talks to the plugin registry's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
	retry   RetryPolicy
	breaker *CircuitBreaker
}

// NewClient creates a registry client from configuration.
func NewClient(cfg config.RegistryConfig) *Client {
	retry := DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retry:   retry,
		breaker: NewCircuitBreaker(5, 30*time.Second),
	}
}

// GetPlugin fetches the descriptor for a slug.
func (c *Client) GetPlugin(ctx context.Context, slug string) (*api.PluginDescriptor, error) {
	var descriptor api.PluginDescriptor
	err := c.do(ctx, http.MethodGet, "/v1/plugins/"+url.PathEscape(slug), nil, &descriptor)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewOperationError(api.ErrorKindNotFound,
				fmt.Sprintf("plugin %q is not in the registry", slug))
		}
		return nil, err
	}
	return &descriptor, nil
}

// Search queries the registry. Filters pass through as query parameters
// alongside q; the registry ignores filters it does not know.
func (c *Client) Search(ctx context.Context, query string, filters map[string]string) ([]api.PluginSummary, error) {
	values := url.Values{}
	if query != "" {
		values.Set("q", query)
	}
	for key, value := range filters {
		values.Set(key, value)
	}
	path := "/v1/plugins"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out struct {
		Plugins []api.PluginSummary `json:"plugins"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Plugins, nil
}

// GetValidation fetches the latest persisted validation verdict for a slug.
// A not_found error means the plugin has never been validated.
func (c *Client) GetValidation(ctx context.Context, slug string) (*api.ValidationResult, error) {
	var result api.ValidationResult
	err := c.do(ctx, http.MethodGet, "/v1/plugins/"+url.PathEscape(slug)+"/validation", nil, &result)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewOperationError(api.ErrorKindNotFound,
				fmt.Sprintf("plugin %q has no validation on record", slug))
		}
		return nil, err
	}
	return &result, nil
}

// PublishValidation stores a validation verdict in the registry. Latest
// write wins, so retries are safe.
func (c *Client) PublishValidation(ctx context.Context, result *api.ValidationResult) error {
	if result == nil || result.Slug == "" {
		return api.NewOperationError(api.ErrorKindInternal, "validation result requires a slug")
	}
	return c.do(ctx, http.MethodPut, "/v1/plugins/"+url.PathEscape(result.Slug)+"/validation", result, nil)
}

// ProbeSource checks whether the plugin's declared source location answers
// at all. Best effort: any failure is simply "unreachable".
func (c *Client) ProbeSource(ctx context.Context, descriptor *api.PluginDescriptor) bool {
	if descriptor == nil || descriptor.SourceURL == "" {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, sourceProbeTimeout)
	defer cancel()

	status, err := c.probe(probeCtx, http.MethodHead, descriptor.SourceURL)
	if err == nil && status == http.StatusMethodNotAllowed {
		// Some hosts reject HEAD outright; one GET settles it.
		status, err = c.probe(probeCtx, http.MethodGet, descriptor.SourceURL)
	}
	if err != nil {
		logging.Debug("Registry", "Source probe for %s failed: %v", descriptor.Slug, err)
		return false
	}
	return status >= 200 && status < 400
}

func (c *Client) probe(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

// do runs one request with retry and breaker accounting. out, when non-nil,
// receives the decoded JSON response body.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if !c.breaker.CanExecute() {
		return api.NewOperationError(api.ErrorKindInternal, "registry circuit breaker is open")
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return api.WrapOperationError(api.ErrorKindInternal, "encode registry request", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.Delay(attempt)
			logging.Debug("Registry", "Retrying %s %s in %s (attempt %d)", method, path, delay, attempt+1)
			select {
			case <-ctx.Done():
				return api.WrapOperationError(api.ErrorKindInternal, "registry request canceled", ctx.Err())
			case <-time.After(delay):
			}
		}

		err := c.once(ctx, method, path, payload, out)
		if err == nil {
			c.breaker.RecordSuccess()
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			// The registry answered; only transport faults and 5xx
			// count against the breaker.
			c.breaker.RecordSuccess()
			return err
		}
		c.breaker.RecordFailure()
	}

	return api.WrapOperationError(api.ErrorKindInternal,
		fmt.Sprintf("registry request failed after %d attempts", c.retry.MaxAttempts), lastErr)
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return api.WrapOperationError(api.ErrorKindInternal, "build registry request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return api.NewOperationError(api.ErrorKindNotFound, "registry resource not found")
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return &transientError{err: fmt.Errorf("registry returned %s", resp.Status)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return api.NewOperationError(api.ErrorKindInternal,
			fmt.Sprintf("registry rejected request: %s", resp.Status))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return api.WrapOperationError(api.ErrorKindInternal, "decode registry response", err)
	}
	return nil
}
