package launcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/scheduler"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

// Readiness polling of the container's port bindings. Service images
// are small, a minute is generous.
const (
	defaultPollAttempts = 60
	defaultPollInterval = time.Second
)

// NotReadyError is returned when a launched service container never
// exposed a usable port within the polling window. The container row
// stays in the catalog so the operator can inspect or delete it.
type NotReadyError struct {
	Kind types.ServiceKind
}

func (e *NotReadyError) Error() string {
	return e.Kind.Display() + " service container did not become ready in time"
}

// Launcher runs the managed-service launch state machine: pick a node,
// invoke the kind-specific launch endpoint, record the container, poll
// until the container exposes a host port, then publish the service.
type Launcher struct {
	store      storage.Store
	dispatcher *scheduler.Dispatcher
	logger     zerolog.Logger

	pollAttempts int
	pollInterval time.Duration
}

// NewLauncher creates a launcher with the default readiness polling.
func NewLauncher(store storage.Store, dispatcher *scheduler.Dispatcher) *Launcher {
	return &Launcher{
		store:        store,
		dispatcher:   dispatcher,
		logger:       log.WithComponent("launcher"),
		pollAttempts: defaultPollAttempts,
		pollInterval: defaultPollInterval,
	}
}

// WithPolling overrides the readiness polling window.
func (l *Launcher) WithPolling(attempts int, interval time.Duration) *Launcher {
	l.pollAttempts = attempts
	l.pollInterval = interval
	return l
}

// sqlLaunchConfig is the payload the SQL launch endpoint expects.
type sqlLaunchConfig struct {
	ResourceLimits *types.ResourceLimits `json:"resource_limits"`
	InstanceName   string                `json:"instance_name,omitempty"`
	DatabaseName   string                `json:"database_name"`
}

// Launch starts a managed service of the given kind. On a readiness
// timeout the container row is left in place and a NotReadyError is
// returned; no service row is written.
func (l *Launcher) Launch(ctx context.Context, kind types.ServiceKind, req *types.ServiceLaunchRequest) (*types.ServiceLaunchResult, error) {
	if req == nil {
		req = &types.ServiceLaunchRequest{}
	}

	node, err := l.dispatcher.SelectNode()
	if err != nil {
		return nil, err
	}
	client := l.dispatcher.ClientFor(node)

	l.logger.Info().
		Str("kind", string(kind)).
		Str("node_id", node.ID).
		Msg("launching service")

	var payload any
	limits := req.ResourceLimits
	database := req.DatabaseName
	if kind == types.ServiceKindSQL {
		if limits == nil {
			limits = types.DefaultResourceLimits()
		}
		if database == "" {
			database = "main"
		}
		payload = &sqlLaunchConfig{
			ResourceLimits: limits,
			InstanceName:   req.InstanceName,
			DatabaseName:   database,
		}
	}

	resp, err := client.LaunchService(ctx, kindEndpoint(kind), payload)
	if err != nil {
		return nil, err
	}

	containerID := containerIDFrom(resp)
	if containerID == "" {
		containerID = scheduler.NewContainerID()
		l.logger.Warn().
			Str("node_id", node.ID).
			Str("container_id", containerID).
			Msg("node response missing container id, generated one")
	}

	userID := req.UserID
	if userID == "" {
		userID = "system"
	}

	container := &types.Container{
		ID:        containerID,
		UserID:    userID,
		NodeID:    node.ID,
		Image:     kindImage(kind),
		Name:      kindImage(kind),
		Status:    types.ContainerStatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.CreateContainer(container); err != nil {
		return nil, fmt.Errorf("failed to store container: %w", err)
	}
	l.dispatcher.UpdateContainerGauge()

	port, err := l.waitForPort(ctx, client.ContainerPorts, containerID, kind)
	if err != nil {
		l.logger.Error().
			Str("kind", string(kind)).
			Str("container_id", containerID).
			Msg("service container did not become ready")
		return nil, err
	}

	ip := hostOf(node.URL)
	now := time.Now().UTC()
	service := &types.Service{
		ID:              string(kind) + "-" + uuid.NewString()[:8],
		Kind:            kind,
		ContainerID:     containerID,
		NodeID:          node.ID,
		IPAddress:       ip,
		Port:            port,
		Status:          types.ServiceStatusRunning,
		Healthy:         true,
		LastHealthCheck: now,
		CreatedAt:       now,
	}
	if kind == types.ServiceKindSQL {
		service.ResourceLimits = limits
		service.InstanceName = req.InstanceName
		service.DatabaseName = database
	}
	if err := l.store.CreateService(service); err != nil {
		return nil, fmt.Errorf("failed to store service: %w", err)
	}
	l.updateServiceGauge(kind)

	l.logger.Info().
		Str("kind", string(kind)).
		Str("service_id", service.ID).
		Str("container_id", containerID).
		Int("port", port).
		Msg("service launched")

	return &types.ServiceLaunchResult{
		ContainerID: containerID,
		ServiceID:   service.ID,
		IPAddress:   ip,
		Port:        port,
		ServiceURL:  service.URL(),
		Status:      string(types.ServiceStatusRunning),
	}, nil
}

// waitForPort polls the container's port bindings until a host port for
// the kind's internal port shows up or the window closes.
func (l *Launcher) waitForPort(ctx context.Context, ports func(context.Context, string) (map[string]any, error), containerID string, kind types.ServiceKind) (int, error) {
	want := fmt.Sprintf("%d/tcp", kind.InternalPort())

	for attempt := 0; attempt < l.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(l.pollInterval):
			}
		}

		resp, err := ports(ctx, containerID)
		if err != nil {
			l.logger.Debug().Err(err).
				Str("container_id", containerID).
				Int("attempt", attempt+1).
				Msg("ports not available yet")
			continue
		}

		if port := extractPort(resp, want); port != 0 {
			return port, nil
		}
	}

	return 0, &NotReadyError{Kind: kind}
}

// extractPort finds the host port mapped to want ("8010/tcp") in a node
// ports payload. The bindings live either under a "ports" key or at the
// top level. Three strategies, in order: the exact key, any key with
// the same port number, then any port key with a usable binding.
func extractPort(resp map[string]any, want string) int {
	ports, _ := resp["ports"].(map[string]any)
	if ports == nil {
		for key := range resp {
			if strings.HasSuffix(key, "/tcp") || strings.HasSuffix(key, "/udp") {
				ports = resp
				break
			}
		}
	}
	if ports == nil {
		return 0
	}

	if port := hostPort(ports[want]); port != 0 {
		return port
	}

	wantBase := trimProto(want)
	for key, bindings := range ports {
		if trimProto(key) == wantBase {
			if port := hostPort(bindings); port != 0 {
				return port
			}
		}
	}

	// Last resort: any bound port. Only proto-suffixed keys qualify,
	// a top-level payload carries non-port fields too.
	for key, bindings := range ports {
		if !strings.HasSuffix(key, "/tcp") && !strings.HasSuffix(key, "/udp") {
			continue
		}
		if port := hostPort(bindings); port != 0 {
			return port
		}
	}
	return 0
}

func trimProto(key string) string {
	key = strings.TrimSuffix(key, "/tcp")
	return strings.TrimSuffix(key, "/udp")
}

// hostPort extracts the host port from one binding value. Nodes answer
// with the Docker shape [{"HostPort": "32770"}] or a bare number.
func hostPort(v any) int {
	switch binding := v.(type) {
	case []any:
		if len(binding) == 0 {
			return 0
		}
		entry, ok := binding[0].(map[string]any)
		if !ok {
			return 0
		}
		switch hp := entry["HostPort"].(type) {
		case string:
			port, err := strconv.Atoi(hp)
			if err != nil {
				return 0
			}
			return port
		case float64:
			return int(hp)
		}
	case float64:
		return int(binding)
	case int:
		return binding
	}
	return 0
}

func (l *Launcher) updateServiceGauge(kind types.ServiceKind) {
	services, err := l.store.ListServicesByKind(kind)
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

// hostOf returns the host part of a node URL.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

func kindEndpoint(kind types.ServiceKind) string {
	switch kind {
	case types.ServiceKindBucket:
		return "/launchBucket"
	case types.ServiceKindSQL:
		return "/launchDB"
	case types.ServiceKindNoSQL:
		return "/launchNoSQL"
	case types.ServiceKindQueue:
		return "/launchQueue"
	case types.ServiceKindSecrets:
		return "/launchSecrets"
	}
	return "/launch"
}

func kindImage(kind types.ServiceKind) string {
	switch kind {
	case types.ServiceKindSQL:
		return "database-service"
	default:
		return string(kind) + "-service"
	}
}

// containerIDFrom pulls the container ID out of a node launch response.
func containerIDFrom(resp map[string]any) string {
	for _, key := range []string{"container_id", "id"} {
		if v, ok := resp[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
