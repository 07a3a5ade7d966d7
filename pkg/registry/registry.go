package registry

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/health"
	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

const (
	// checkInterval is how often the liveness loop sweeps all nodes.
	checkInterval = 10 * time.Second

	// probeTimeout bounds a single /health probe.
	probeTimeout = 10 * time.Second
)

// Registry tracks worker nodes: registration, liveness and manual probes.
type Registry struct {
	store  storage.Store
	stopCh chan struct{}
	logger zerolog.Logger
}

// NewRegistry creates a node registry backed by the given store.
func NewRegistry(store storage.Store) *Registry {
	return &Registry{
		store:  store,
		stopCh: make(chan struct{}),
		logger: log.WithComponent("registry"),
	}
}

// Register upserts a node. A re-registration refreshes the URL, marks
// the node healthy and bumps last_seen; registered_at is kept from the
// first registration.
//
// peerIP is the observed remote address of the registering connection
// and forwardedFor the raw X-Forwarded-For header, used to substitute
// a 0.0.0.0 advertise address.
func (r *Registry) Register(nodeID, rawURL, peerIP, forwardedFor string) (*types.Node, error) {
	nodeURL, err := NormalizeAdvertiseURL(rawURL, peerIP, forwardedFor)
	if err != nil {
		return nil, fmt.Errorf("invalid node url %q: %w", rawURL, err)
	}

	now := time.Now().UTC()
	node := &types.Node{
		ID:              nodeID,
		URL:             nodeURL,
		Healthy:         true,
		LastSeen:        now,
		LastHealthCheck: now,
		RegisteredAt:    now,
	}

	if existing, err := r.store.GetNode(nodeID); err == nil {
		node.RegisteredAt = existing.RegisteredAt
	}

	if err := r.store.UpdateNode(node); err != nil {
		return nil, fmt.Errorf("failed to store node: %w", err)
	}

	r.logger.Info().
		Str("node_id", nodeID).
		Str("url", nodeURL).
		Msg("node registered")

	r.updateGauge()
	return node, nil
}

// Probe performs an immediate health check of one node and persists
// the outcome.
func (r *Registry) Probe(ctx context.Context, nodeID string) (bool, error) {
	node, err := r.store.GetNode(nodeID)
	if err != nil {
		return false, err
	}

	healthy := r.checkNode(ctx, node)
	return healthy, nil
}

// Start begins the background liveness loop.
func (r *Registry) Start() {
	go r.run()
	r.logger.Info().Msg("liveness loop started")
}

// Stop stops the liveness loop.
func (r *Registry) Stop() {
	close(r.stopCh)
	r.logger.Info().Msg("liveness loop stopped")
}

func (r *Registry) run() {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.checkAll()
		case <-r.stopCh:
			return
		}
	}
}

// checkAll probes every registered node. Errors are logged per node
// and never abort the sweep.
func (r *Registry) checkAll() {
	nodes, err := r.store.ListNodes()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list nodes")
		return
	}

	ctx := context.Background()
	for _, node := range nodes {
		r.checkNode(ctx, node)
	}

	r.updateGauge()
}

// checkNode probes one node and persists the result. Returns the new
// health state.
func (r *Registry) checkNode(ctx context.Context, node *types.Node) bool {
	checker := health.NewHTTPChecker(node.URL + "/health").WithTimeout(probeTimeout)
	result := checker.Check(ctx)

	wasHealthy := node.Healthy
	node.Healthy = result.Healthy
	node.LastHealthCheck = result.CheckedAt
	if result.Healthy {
		node.LastSeen = result.CheckedAt
	}

	if err := r.store.UpdateNode(node); err != nil {
		r.logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to update node")
		return result.Healthy
	}

	if wasHealthy && !result.Healthy {
		r.logger.Warn().
			Str("node_id", node.ID).
			Str("reason", result.Message).
			Msg("node became unhealthy")
	} else if !wasHealthy && result.Healthy {
		r.logger.Info().Str("node_id", node.ID).Msg("node recovered")
	}

	return result.Healthy
}

func (r *Registry) updateGauge() {
	healthy, err := r.store.ListHealthyNodes()
	if err != nil {
		return
	}
	metrics.ActiveNodes.Set(float64(len(healthy)))
}

// NormalizeAdvertiseURL rewrites a 0.0.0.0 advertise address to the
// address the node was actually seen from. When the peer is loopback
// (the node reached us through a proxy) the first X-Forwarded-For
// entry wins.
func NormalizeAdvertiseURL(rawURL, peerIP, forwardedFor string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("missing scheme or host")
	}

	host := parsed.Hostname()
	if host != "0.0.0.0" {
		return strings.TrimRight(rawURL, "/"), nil
	}

	replacement := peerIP
	if isLoopback(peerIP) && forwardedFor != "" {
		first := strings.Split(forwardedFor, ",")[0]
		replacement = strings.TrimSpace(first)
	}
	if replacement == "" {
		return "", fmt.Errorf("cannot resolve advertise address for 0.0.0.0")
	}

	if port := parsed.Port(); port != "" {
		parsed.Host = net.JoinHostPort(replacement, port)
	} else {
		parsed.Host = replacement
	}

	return strings.TrimRight(parsed.String(), "/"), nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
