package containers

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/scheduler"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

// ErrNodeUnavailable is returned when a container's node is missing or
// unhealthy. The message is part of the API contract.
var ErrNodeUnavailable = errors.New("Container node is not available")

// Manager forwards container lifecycle operations to the node that
// hosts each container and keeps the catalog rows in sync.
type Manager struct {
	store      storage.Store
	token      string
	dispatcher *scheduler.Dispatcher
	logger     zerolog.Logger
}

// NewManager creates a container manager.
func NewManager(store storage.Store, token string, dispatcher *scheduler.Dispatcher) *Manager {
	return &Manager{
		store:      store,
		token:      token,
		dispatcher: dispatcher,
		logger:     log.WithComponent("containers"),
	}
}

// resolve finds a container and the healthy node that hosts it.
func (m *Manager) resolve(containerID string) (*types.Container, *nodeclient.Client, error) {
	container, err := m.store.GetContainer(containerID)
	if err != nil {
		return nil, nil, err
	}

	node, err := m.store.GetNode(container.NodeID)
	if err != nil || !node.Healthy {
		return nil, nil, ErrNodeUnavailable
	}

	return container, nodeclient.New(node.URL, m.token), nil
}

// Status fetches the node's live view of a container.
func (m *Manager) Status(ctx context.Context, containerID string) (map[string]any, error) {
	_, client, err := m.resolve(containerID)
	if err != nil {
		return nil, err
	}
	return client.ContainerStatus(ctx, containerID)
}

// Ports fetches the port bindings of a container.
func (m *Manager) Ports(ctx context.Context, containerID string) (map[string]any, error) {
	_, client, err := m.resolve(containerID)
	if err != nil {
		return nil, err
	}
	return client.ContainerPorts(ctx, containerID)
}

// Start starts a stopped container and marks the row running.
func (m *Manager) Start(ctx context.Context, containerID string) error {
	container, client, err := m.resolve(containerID)
	if err != nil {
		return err
	}

	if err := client.StartContainer(ctx, containerID); err != nil {
		return err
	}

	container.Status = types.ContainerStatusRunning
	if err := m.store.UpdateContainer(container); err != nil {
		return fmt.Errorf("failed to update container: %w", err)
	}

	m.dispatcher.UpdateContainerGauge()
	m.logger.Info().Str("container_id", containerID).Msg("container started")
	return nil
}

// Stop stops a running container and marks the row stopped.
func (m *Manager) Stop(ctx context.Context, containerID string) error {
	container, client, err := m.resolve(containerID)
	if err != nil {
		return err
	}

	if err := client.StopContainer(ctx, containerID); err != nil {
		return err
	}

	container.Status = types.ContainerStatusStopped
	if err := m.store.UpdateContainer(container); err != nil {
		return fmt.Errorf("failed to update container: %w", err)
	}

	m.dispatcher.UpdateContainerGauge()
	m.logger.Info().Str("container_id", containerID).Msg("container stopped")
	return nil
}

// Restart restarts a container in place. Nodes without a /restart
// endpoint answer 404; those get a stop-then-start sequence instead.
// The stop half is best effort, the container may already be stopped.
func (m *Manager) Restart(ctx context.Context, containerID string) error {
	container, client, err := m.resolve(containerID)
	if err != nil {
		return err
	}

	err = client.RestartContainer(ctx, containerID)
	if nodeclient.IsNotFound(err) {
		m.logger.Info().
			Str("container_id", containerID).
			Msg("node has no restart endpoint, falling back to stop then start")

		if stopErr := client.StopContainer(ctx, containerID); stopErr != nil {
			m.logger.Warn().Err(stopErr).
				Str("container_id", containerID).
				Msg("stop failed during restart, continuing")
		}
		err = client.StartContainer(ctx, containerID)
	}
	if err != nil {
		return err
	}

	container.Status = types.ContainerStatusRunning
	if err := m.store.UpdateContainer(container); err != nil {
		return fmt.Errorf("failed to update container: %w", err)
	}

	m.dispatcher.UpdateContainerGauge()
	m.logger.Info().Str("container_id", containerID).Msg("container restarted")
	return nil
}

// Delete removes a container. Node-side teardown is best effort: the
// catalog row always goes away, even when the node is gone.
func (m *Manager) Delete(ctx context.Context, containerID string) error {
	container, err := m.store.GetContainer(containerID)
	if err != nil {
		return err
	}

	node, err := m.store.GetNode(container.NodeID)
	if err == nil && node.Healthy {
		client := nodeclient.New(node.URL, m.token)

		if err := client.StopContainer(ctx, containerID); err != nil {
			m.logger.Warn().Err(err).
				Str("container_id", containerID).
				Msg("failed to stop container during delete, continuing")
		}

		if err := client.DeleteContainer(ctx, containerID); err != nil && !nodeclient.IsNotFound(err) {
			m.logger.Warn().Err(err).
				Str("container_id", containerID).
				Msg("failed to remove container from node, continuing with catalog cleanup")
		}
	} else {
		m.logger.Warn().
			Str("container_id", containerID).
			Str("node_id", container.NodeID).
			Msg("node not available for container deletion, cleaning up catalog only")
	}

	if err := m.store.DeleteContainer(containerID); err != nil {
		return fmt.Errorf("failed to delete container: %w", err)
	}

	m.dispatcher.UpdateContainerGauge()
	m.logger.Info().Str("container_id", containerID).Msg("container deleted")
	return nil
}

// ListAll returns every container in the catalog.
func (m *Manager) ListAll() ([]*types.Container, error) {
	return m.store.ListContainers()
}

// ListByUser returns the containers owned by one user.
func (m *Manager) ListByUser(userID string) ([]*types.Container, error) {
	return m.store.ListContainersByUser(userID)
}

// Templates returns the launch templates of the first healthy node.
// When no node is available, or the node predates the endpoint, the
// built-in defaults are served instead.
func (m *Manager) Templates(ctx context.Context) (map[string]any, error) {
	node, err := m.dispatcher.SelectNode()
	if err != nil {
		m.logger.Warn().Msg("no healthy nodes available, returning default templates")
		return defaultTemplates(), nil
	}

	client := nodeclient.New(node.URL, m.token)
	resp, err := client.Templates(ctx)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("node_id", node.ID).
			Msg("failed to get templates from node, returning default templates")
		return defaultTemplates(), nil
	}
	return resp, nil
}

// DefaultTemplates returns the built-in template list.
func DefaultTemplates() []types.Template {
	return []types.Template{
		{
			Name:        "python-web",
			Description: "Python web application with Flask",
			Image:       "python:3.9-slim",
			Ports:       map[string]int{"5000/tcp": 5000},
			Env:         map[string]string{"FLASK_APP": "app.py"},
			CPU:         0.2,
			Memory:      "512m",
		},
		{
			Name:        "node-web",
			Description: "Node.js web application",
			Image:       "node:16-alpine",
			Ports:       map[string]int{"3000/tcp": 3000},
			Env:         map[string]string{"NODE_ENV": "production"},
			CPU:         0.2,
			Memory:      "512m",
		},
		{
			Name:        "nginx",
			Description: "Nginx web server",
			Image:       "nginx:alpine",
			Ports:       map[string]int{"80/tcp": 8080},
			Env:         map[string]string{},
			CPU:         0.1,
			Memory:      "256m",
		},
	}
}

func defaultTemplates() map[string]any {
	return map[string]any{"templates": DefaultTemplates()}
}
