package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

// Per-operation timeouts against managed services.
const (
	probeTimeout    = 10 * time.Second
	forwardTimeout  = 10 * time.Second
	queryTimeout    = 30 * time.Second
	transferTimeout = 60 * time.Second
)

// NotFoundError reports a service id with no catalog row of the
// requested kind. It unwraps to storage.ErrNotFound so the API maps
// it to 404.
type NotFoundError struct {
	Kind types.ServiceKind
}

func (e *NotFoundError) Error() string {
	return e.Kind.Display() + " service not found"
}

func (e *NotFoundError) Unwrap() error {
	return storage.ErrNotFound
}

// NotHealthyError reports an operation against a service the catalog
// says is unhealthy. The service is never contacted.
type NotHealthyError struct {
	Kind types.ServiceKind
}

func (e *NotHealthyError) Error() string {
	return e.Kind.Display() + " service is not healthy"
}

// Router forwards data-plane operations to managed services. The
// catalog decides which service a request goes to and whether it goes
// at all; the service's own response is passed back wrapped in an
// envelope naming the service.
type Router struct {
	store      storage.Store
	token      string
	signingKey string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewRouter creates a router. token authenticates node calls during
// service removal; signingKey is attached to SQL service requests as
// the x-signature header.
func NewRouter(store storage.Store, token, signingKey string) *Router {
	return &Router{
		store:      store,
		token:      token,
		signingKey: signingKey,
		httpClient: &http.Client{},
		logger:     log.WithComponent("router"),
	}
}

// List returns all services of one kind.
func (r *Router) List(kind types.ServiceKind) ([]*types.Service, error) {
	return r.store.ListServicesByKind(kind)
}

// Get returns one service, checking it has the requested kind.
func (r *Router) Get(kind types.ServiceKind, serviceID string) (*types.Service, error) {
	svc, err := r.store.GetService(serviceID)
	if err != nil || svc.Kind != kind {
		return nil, &NotFoundError{Kind: kind}
	}
	return svc, nil
}

// resolve fetches a service row and refuses unhealthy ones.
func (r *Router) resolve(kind types.ServiceKind, serviceID string) (*types.Service, error) {
	svc, err := r.Get(kind, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.Healthy {
		return nil, &NotHealthyError{Kind: kind}
	}
	return svc, nil
}

// CheckHealth probes a service's /health endpoint on demand and
// persists the outcome.
func (r *Router) CheckHealth(ctx context.Context, kind types.ServiceKind, serviceID string) (map[string]any, error) {
	svc, err := r.Get(kind, serviceID)
	if err != nil {
		return nil, err
	}

	healthy := false
	resp, err := r.do(ctx, http.MethodGet, svc.URL()+"/health", nil, nil, probeTimeout)
	if err == nil {
		healthy = resp.StatusCode == http.StatusOK
		resp.Body.Close()
	}

	svc.Healthy = healthy
	svc.LastHealthCheck = time.Now().UTC()
	if err := r.store.UpdateService(svc); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	return map[string]any{
		"service_id":  serviceID,
		"is_healthy":  healthy,
		"last_check":  svc.LastHealthCheck.Format(time.RFC3339),
		"service_url": svc.URL(),
	}, nil
}

// Remove tears down a service. Node-side container cleanup is best
// effort; the catalog rows always go away.
func (r *Router) Remove(ctx context.Context, kind types.ServiceKind, serviceID string) (map[string]any, error) {
	svc, err := r.Get(kind, serviceID)
	if err != nil {
		return nil, err
	}

	container, err := r.store.GetContainer(svc.ContainerID)
	if err != nil {
		r.logger.Warn().
			Str("service_id", serviceID).
			Str("container_id", svc.ContainerID).
			Msg("container not found for service, cleaning up catalog only")
		container = nil
	}

	if container != nil {
		node, err := r.store.GetNode(container.NodeID)
		if err == nil && node.Healthy {
			client := nodeclient.New(node.URL, r.token)

			if err := client.StopContainer(ctx, container.ID); err != nil {
				r.logger.Warn().Err(err).
					Str("service_id", serviceID).
					Msg("failed to stop container during removal, continuing")
			}

			// Bucket containers hold user data on the node; remove
			// them outright. Other kinds keep the stopped container
			// around for the node's own garbage collection.
			if kind == types.ServiceKindBucket {
				if err := client.DeleteContainer(ctx, container.ID); err != nil && !nodeclient.IsNotFound(err) {
					r.logger.Warn().Err(err).
						Str("service_id", serviceID).
						Msg("failed to remove container during removal, continuing")
				}
			}
		}

		if err := r.store.DeleteContainer(container.ID); err != nil {
			r.logger.Warn().Err(err).
				Str("container_id", container.ID).
				Msg("failed to delete container row")
		}
	}

	if err := r.store.DeleteService(serviceID); err != nil {
		return nil, fmt.Errorf("failed to delete service: %w", err)
	}
	r.updateGauge(kind)

	r.logger.Info().
		Str("service_id", serviceID).
		Str("kind", string(kind)).
		Msg("service removed")

	display := kind.Display()
	if kind == types.ServiceKindSQL {
		display = "Database"
	}
	return map[string]any{
		"message": fmt.Sprintf("%s service %s removed successfully", display, serviceID),
	}, nil
}

func (r *Router) updateGauge(kind types.ServiceKind) {
	services, err := r.store.ListServicesByKind(kind)
	if err != nil {
		return
	}
	healthy := 0
	for _, svc := range services {
		if svc.Healthy {
			healthy++
		}
	}
	if gauge := metrics.ServiceGauge(string(kind)); gauge != nil {
		gauge.Set(float64(healthy))
	}
}

func (r *Router) do(ctx context.Context, method, url string, headers map[string]string, body any, timeout time.Duration) (*http.Response, error) {
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

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach service: %w", err)
	}
	return resp, nil
}

// forward performs a request against a service and decodes a 2xx JSON
// response. Non-2xx responses become a StatusError so the API can pass
// the service's status through.
func (r *Router) forward(ctx context.Context, method, url string, headers map[string]string, body, out any, timeout time.Duration) error {
	resp, err := r.do(ctx, method, url, headers, body, timeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &nodeclient.StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode service response: %w", err)
	}
	return nil
}

// timestamp is the envelope timestamp attached to forwarded responses.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
