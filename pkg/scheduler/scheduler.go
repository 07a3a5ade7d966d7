package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

// ErrNoCapacity is returned when no healthy node can take a workload.
// The message is part of the API contract.
var ErrNoCapacity = errors.New("No healthy nodes available")

// Selector picks a node from a non-empty list of healthy candidates.
type Selector interface {
	Select(nodes []*types.Node) *types.Node
}

// FirstHealthy returns the first candidate. Candidates arrive sorted
// by ID, so placement is deterministic for a given fleet.
type FirstHealthy struct{}

func (FirstHealthy) Select(nodes []*types.Node) *types.Node {
	return nodes[0]
}

// Dispatcher places containers on nodes.
type Dispatcher struct {
	store    storage.Store
	token    string
	selector Selector
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher with the default selector.
func NewDispatcher(store storage.Store, token string) *Dispatcher {
	return &Dispatcher{
		store:    store,
		token:    token,
		selector: FirstHealthy{},
		logger:   log.WithComponent("scheduler"),
	}
}

// WithSelector replaces the placement strategy.
func (d *Dispatcher) WithSelector(s Selector) *Dispatcher {
	d.selector = s
	return d
}

// SelectNode picks a healthy node for a new workload.
func (d *Dispatcher) SelectNode() (*types.Node, error) {
	nodes, err := d.store.ListHealthyNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, ErrNoCapacity
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return d.selector.Select(nodes), nil
}

// ClientFor returns a node client for the given node.
func (d *Dispatcher) ClientFor(node *types.Node) *nodeclient.Client {
	return nodeclient.New(node.URL, d.token)
}

// Launch places a container on a healthy node, forwards the launch
// request and records the container in the catalog. The node's raw
// response is returned alongside the catalog row.
func (d *Dispatcher) Launch(ctx context.Context, req *types.LaunchRequest) (*types.Container, map[string]any, error) {
	node, err := d.SelectNode()
	if err != nil {
		return nil, nil, err
	}

	client := d.ClientFor(node)
	resp, err := client.Launch(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	containerID := extractContainerID(resp)
	if containerID == "" {
		containerID = NewContainerID()
		d.logger.Warn().
			Str("node_id", node.ID).
			Str("container_id", containerID).
			Msg("node response missing container id, generated one")
	}

	container := &types.Container{
		ID:        containerID,
		UserID:    req.UserID,
		NodeID:    node.ID,
		Image:     req.Image,
		Name:      req.Name,
		Env:       req.Env,
		CPU:       req.CPU,
		Memory:    req.Memory,
		Ports:     req.Ports,
		Status:    types.ContainerStatusRunning,
		CreatedAt: time.Now().UTC(),
	}

	if err := d.store.CreateContainer(container); err != nil {
		return nil, nil, fmt.Errorf("failed to store container: %w", err)
	}

	d.logger.Info().
		Str("container_id", containerID).
		Str("node_id", node.ID).
		Str("image", req.Image).
		Msg("container dispatched")

	d.UpdateContainerGauge()
	return container, resp, nil
}

// UpdateContainerGauge recomputes the running-container gauge.
func (d *Dispatcher) UpdateContainerGauge() {
	containers, err := d.store.ListContainers()
	if err != nil {
		return
	}
	running := 0
	for _, ctr := range containers {
		if ctr.Status == types.ContainerStatusRunning {
			running++
		}
	}
	metrics.ActiveContainers.Set(float64(running))
}

// NewContainerID generates a fallback container ID.
func NewContainerID() string {
	return "container-" + uuid.NewString()[:8]
}

// extractContainerID pulls the container ID out of a node launch
// response. Nodes answer with either "container_id" or "id".
func extractContainerID(resp map[string]any) string {
	for _, key := range []string{"container_id", "id"} {
		if v, ok := resp[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
