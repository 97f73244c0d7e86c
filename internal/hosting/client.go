package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// BuildState is the platform's verdict on one build.
type BuildState string

const (
	BuildPending   BuildState = "pending"
	BuildSucceeded BuildState = "succeeded"
	BuildFailed    BuildState = "failed"
)

// BuildStatus is one status poll answer. Detail carries the platform's
// message when the build failed.
type BuildStatus struct {
	State  BuildState `json:"state"`
	Detail string     `json:"detail,omitempty"`
}

// Platform is the four-call contract the deployer relies on.
type Platform interface {
	// ResolveOrCreate returns the instance identifier for a deterministic
	// name, creating the instance under the caller's account when none
	// exists. This is the only call that ever carries the credential.
	ResolveOrCreate(ctx context.Context, name, credential string) (string, error)

	TriggerBuild(ctx context.Context, instanceID string) (string, error)
	GetBuildStatus(ctx context.Context, buildID string) (BuildStatus, error)
	GetEndpoint(ctx context.Context, instanceID string) (string, error)
}

// Client talks to the hosting platform's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Platform = (*Client)(nil)

// NewClient creates a hosting client from configuration.
func NewClient(cfg config.HostingConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ResolveOrCreate looks up the instance by name, creating it when absent.
// The error path never includes the response body; the request carried
// the credential and nothing derived from it may surface.
func (c *Client) ResolveOrCreate(ctx context.Context, name, credential string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"name":       name,
		"credential": credential,
	})
	if err != nil {
		return "", api.WrapOperationError(api.ErrorKindInternal, "encode instance request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/instances", bytes.NewReader(payload))
	if err != nil {
		return "", api.WrapOperationError(api.ErrorKindInternal, "build instance request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", api.NewOperationError(api.ErrorKindDeploymentFailed,
			fmt.Sprintf("hosting platform unreachable: %v", sanitizeTransportError(err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", api.NewOperationError(api.ErrorKindDeploymentFailed,
			fmt.Sprintf("hosting platform refused instance resolution: %s", resp.Status))
	}

	var out struct {
		InstanceID string `json:"instanceId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", api.WrapOperationError(api.ErrorKindDeploymentFailed, "decode instance response", err)
	}
	if out.InstanceID == "" {
		return "", api.NewOperationError(api.ErrorKindDeploymentFailed, "hosting platform returned no instance id")
	}
	return out.InstanceID, nil
}

// TriggerBuild starts a build for the instance and returns the build id.
func (c *Client) TriggerBuild(ctx context.Context, instanceID string) (string, error) {
	var out struct {
		BuildID string `json:"buildId"`
	}
	err := c.postJSON(ctx, "/v1/instances/"+url.PathEscape(instanceID)+"/builds", nil, &out)
	if err != nil {
		return "", err
	}
	if out.BuildID == "" {
		return "", api.NewOperationError(api.ErrorKindDeploymentFailed, "hosting platform returned no build id")
	}
	return out.BuildID, nil
}

// GetBuildStatus reads the current state of a build.
func (c *Client) GetBuildStatus(ctx context.Context, buildID string) (BuildStatus, error) {
	var out BuildStatus
	if err := c.getJSON(ctx, "/v1/builds/"+url.PathEscape(buildID), &out); err != nil {
		return BuildStatus{}, err
	}
	switch out.State {
	case BuildPending, BuildSucceeded, BuildFailed:
		return out, nil
	default:
		return BuildStatus{}, api.NewOperationError(api.ErrorKindDeploymentFailed,
			fmt.Sprintf("hosting platform reported unknown build state %q", out.State))
	}
}

// GetEndpoint reads the connection endpoint of a built instance.
func (c *Client) GetEndpoint(ctx context.Context, instanceID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "/v1/instances/"+url.PathEscape(instanceID)+"/endpoint", &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", api.NewOperationError(api.ErrorKindDeploymentFailed, "hosting platform returned no endpoint")
	}
	return out.URL, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return api.WrapOperationError(api.ErrorKindInternal, "encode hosting request", err)
		}
		reqBody = bytes.NewReader(payload)
	}
	return c.roundTrip(ctx, http.MethodPost, path, reqBody, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.roundTrip(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return api.WrapOperationError(api.ErrorKindInternal, "build hosting request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return api.WrapOperationError(api.ErrorKindDeploymentFailed, "hosting platform unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		msg := fmt.Sprintf("hosting platform returned %s", resp.Status)
		if len(detail) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(string(detail)))
		}
		return api.NewOperationError(api.ErrorKindDeploymentFailed, msg)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return api.WrapOperationError(api.ErrorKindDeploymentFailed, "decode hosting response", err)
	}
	return nil
}

// sanitizeTransportError keeps transport errors free of URL userinfo or
// request detail; the Go http client error text includes the URL, which is
// safe, but never the body.
func sanitizeTransportError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}
