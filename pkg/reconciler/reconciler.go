package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/health"
	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

const (
	// sweepInterval is how often the reconciler walks all services.
	sweepInterval = 30 * time.Second

	// probeTimeout bounds a single service /health probe.
	probeTimeout = 10 * time.Second
)

// Reconciler sweeps all managed services, probes their health endpoints
// and makes one restart attempt for services that stopped answering.
type Reconciler struct {
	store  storage.Store
	token  string
	stopCh chan struct{}
	logger zerolog.Logger

	// Sweeps self-serialize; a slow sweep delays the next one rather
	// than overlapping it.
	mu sync.Mutex
}

// NewReconciler creates a service health reconciler.
func NewReconciler(store storage.Store, token string) *Reconciler {
	return &Reconciler{
		store:  store,
		token:  token,
		stopCh: make(chan struct{}),
		logger: log.WithComponent("reconciler"),
	}
}

// Start begins the background sweep loop.
func (r *Reconciler) Start() {
	go r.run()
	r.logger.Info().Msg("service health loop started")
}

// Stop stops the sweep loop.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.logger.Info().Msg("service health loop stopped")
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

// Sweep probes every managed service once and updates the per-kind
// healthy gauges. Errors are logged per service and never abort the
// sweep.
func (r *Reconciler) Sweep(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := map[types.ServiceKind]int{}
	for _, kind := range types.Kinds() {
		services, err := r.store.ListServicesByKind(kind)
		if err != nil {
			r.logger.Error().Err(err).
				Str("kind", string(kind)).
				Msg("failed to list services")
			continue
		}

		for _, svc := range services {
			if r.checkService(ctx, svc) {
				counts[kind]++
			}
		}
	}

	for _, kind := range types.Kinds() {
		if gauge := metrics.ServiceGauge(string(kind)); gauge != nil {
			gauge.Set(float64(counts[kind]))
		}
	}

	r.logger.Info().
		Int("bucket", counts[types.ServiceKindBucket]).
		Int("db", counts[types.ServiceKindSQL]).
		Int("nosql", counts[types.ServiceKindNoSQL]).
		Int("queue", counts[types.ServiceKindQueue]).
		Int("secrets", counts[types.ServiceKindSecrets]).
		Msg("service health sweep complete")
}

// checkService probes one service and persists the outcome. Unhealthy
// services get exactly one restart attempt per sweep; a failed attempt
// marks the service failed until an operator or a later sweep recovers
// it. Returns whether the service ended the sweep healthy.
func (r *Reconciler) checkService(ctx context.Context, svc *types.Service) bool {
	result := health.NewHTTPChecker(svc.URL() + "/health").
		WithTimeout(probeTimeout).
		Check(ctx)

	wasHealthy := svc.Healthy
	svc.Healthy = result.Healthy
	svc.LastHealthCheck = result.CheckedAt

	if result.Healthy {
		svc.Status = types.ServiceStatusRunning
		if !wasHealthy {
			r.logger.Info().
				Str("service_id", svc.ID).
				Str("kind", string(svc.Kind)).
				Msg("service recovered")
		}
		r.persist(svc)
		return true
	}

	svc.Status = types.ServiceStatusUnhealthy
	if wasHealthy {
		r.logger.Warn().
			Str("service_id", svc.ID).
			Str("kind", string(svc.Kind)).
			Str("reason", result.Message).
			Msg("service became unhealthy")
	}

	if r.restart(ctx, svc) {
		svc.Healthy = true
		svc.Status = types.ServiceStatusRunning
		svc.LastHealthCheck = time.Now().UTC()
		r.persist(svc)
		return true
	}

	svc.Status = types.ServiceStatusFailed
	r.persist(svc)
	return false
}

// restart makes one attempt to start the service's container on its
// node. The container row is marked running on success.
func (r *Reconciler) restart(ctx context.Context, svc *types.Service) bool {
	r.logger.Info().
		Str("service_id", svc.ID).
		Str("kind", string(svc.Kind)).
		Msg("attempting service restart")

	container, err := r.store.GetContainer(svc.ContainerID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("service_id", svc.ID).
			Msg("container not found for service")
		return false
	}

	node, err := r.store.GetNode(container.NodeID)
	if err != nil || !node.Healthy {
		r.logger.Error().
			Str("service_id", svc.ID).
			Str("node_id", container.NodeID).
			Msg("node not available for service restart")
		return false
	}

	client := nodeclient.New(node.URL, r.token)
	if err := client.StartContainer(ctx, container.ID); err != nil {
		r.logger.Warn().Err(err).
			Str("service_id", svc.ID).
			Str("container_id", container.ID).
			Msg("container start failed, marking service failed")
		return false
	}

	container.Status = types.ContainerStatusRunning
	if err := r.store.UpdateContainer(container); err != nil {
		r.logger.Error().Err(err).
			Str("container_id", container.ID).
			Msg("failed to update container")
	}

	r.logger.Info().
		Str("service_id", svc.ID).
		Str("container_id", container.ID).
		Msg("service container restarted")
	return true
}

func (r *Reconciler) persist(svc *types.Service) {
	if err := r.store.UpdateService(svc); err != nil {
		r.logger.Error().Err(err).
			Str("service_id", svc.ID).
			Msg("failed to update service")
	}
}
