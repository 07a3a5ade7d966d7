package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnreachable is wrapped around transport-level failures so callers
// can tell them apart from node-reported errors.
var ErrUnreachable = errors.New("node unreachable")

// StatusError is a non-2xx response from a node. The body is preserved
// so the API can pass node errors through to the caller.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("node returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a node 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Per-operation timeouts. Health probes are short; lifecycle operations
// wait for image pulls and container starts.
const (
	HealthTimeout = 10 * time.Second
	StatusTimeout = 30 * time.Second
	LaunchTimeout = 60 * time.Second
)

// Client is an HTTP client for a single worker node.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the node at baseURL. The token, when set, is
// sent as a bearer token on every request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// BaseURL returns the node URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, body any, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return resp, nil
}

// doJSON performs a request and decodes a 2xx JSON response into out.
// Non-2xx responses become a StatusError with the body preserved.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, timeout time.Duration) error {
	resp, err := c.do(ctx, method, path, body, timeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode node response: %w", err)
	}
	return nil
}

// Health probes the node's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil, HealthTimeout)
}

// Launch asks the node to start a container and returns the node's
// response verbatim.
func (c *Client) Launch(ctx context.Context, req any) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodPost, "/launch", req, &out, LaunchTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

// LaunchService invokes a kind-specific launch endpoint on the node,
// e.g. /launchBucket or /launchDB.
func (c *Client) LaunchService(ctx context.Context, endpoint string, req any) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodPost, endpoint, req, &out, LaunchTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

// ContainerStatus fetches the node's view of a container.
func (c *Client) ContainerStatus(ctx context.Context, containerID string) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, http.MethodGet, "/containers/"+containerID+"/status", nil, &out, StatusTimeout)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ContainerPorts fetches the port bindings of a container.
func (c *Client) ContainerPorts(ctx context.Context, containerID string) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, http.MethodGet, "/containers/"+containerID+"/ports", nil, &out, StatusTimeout)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StartContainer starts a stopped container.
func (c *Client) StartContainer(ctx context.Context, containerID string) error {
	return c.doJSON(ctx, http.MethodPost, "/containers/"+containerID+"/start", nil, nil, LaunchTimeout)
}

// StopContainer stops a running container.
func (c *Client) StopContainer(ctx context.Context, containerID string) error {
	return c.doJSON(ctx, http.MethodPost, "/containers/"+containerID+"/stop", nil, nil, LaunchTimeout)
}

// RestartContainer restarts a container in place. Older node builds do
// not have this endpoint and answer 404; callers fall back to a
// stop-then-start sequence.
func (c *Client) RestartContainer(ctx context.Context, containerID string) error {
	return c.doJSON(ctx, http.MethodPost, "/containers/"+containerID+"/restart", nil, nil, LaunchTimeout)
}

// DeleteContainer removes a container from the node.
func (c *Client) DeleteContainer(ctx context.Context, containerID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/containers/"+containerID, nil, nil, LaunchTimeout)
}

// Templates fetches the node's launch template list.
func (c *Client) Templates(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/templates", nil, &out, StatusTimeout); err != nil {
		return nil, err
	}
	return out, nil
}
