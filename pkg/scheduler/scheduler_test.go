package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "fabric.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSelectNode_NoHealthyNodes(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", Healthy: false}))

	dispatcher := NewDispatcher(store, "")
	_, err := dispatcher.SelectNode()
	assert.True(t, errors.Is(err, ErrNoCapacity))
	assert.Contains(t, err.Error(), "No healthy nodes available")
}

func TestSelectNode_Deterministic(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-c", Healthy: true}))
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-a", Healthy: true}))
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-b", Healthy: true}))

	dispatcher := NewDispatcher(store, "")
	for i := 0; i < 5; i++ {
		node, err := dispatcher.SelectNode()
		require.NoError(t, err)
		assert.Equal(t, "node-a", node.ID)
	}
}

func TestSelectNode_SkipsUnhealthy(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-a", Healthy: false}))
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-b", Healthy: true}))

	dispatcher := NewDispatcher(store, "")
	node, err := dispatcher.SelectNode()
	require.NoError(t, err)
	assert.Equal(t, "node-b", node.ID)
}

type lastSelector struct{}

func (lastSelector) Select(nodes []*types.Node) *types.Node {
	return nodes[len(nodes)-1]
}

func TestWithSelector(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-a", Healthy: true}))
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-b", Healthy: true}))

	dispatcher := NewDispatcher(store, "").WithSelector(lastSelector{})
	node, err := dispatcher.SelectNode()
	require.NoError(t, err)
	assert.Equal(t, "node-b", node.ID)
}

func TestLaunch_RecordsContainer(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/launch", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"container_id":"abc123","status":"started"}`))
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: srv.URL, Healthy: true}))

	dispatcher := NewDispatcher(store, "")
	container, resp, err := dispatcher.Launch(context.Background(), &types.LaunchRequest{
		UserID: "alice",
		Image:  "nginx:latest",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", container.ID)
	assert.Equal(t, "node-1", container.NodeID)
	assert.Equal(t, "alice", container.UserID)
	assert.Equal(t, types.ContainerStatusRunning, container.Status)
	assert.Equal(t, "started", resp["status"])
	assert.Equal(t, "nginx:latest", gotBody["image"])

	stored, err := store.GetContainer("abc123")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.UserID)
}

func TestLaunch_GeneratesIDWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"started"}`))
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: srv.URL, Healthy: true}))

	dispatcher := NewDispatcher(store, "")
	container, _, err := dispatcher.Launch(context.Background(), &types.LaunchRequest{
		UserID: "alice",
		Image:  "nginx:latest",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(container.ID, "container-"))
	assert.Len(t, container.ID, len("container-")+8)
}

func TestLaunch_AcceptsAlternateIDKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"xyz789"}`))
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: srv.URL, Healthy: true}))

	dispatcher := NewDispatcher(store, "")
	container, _, err := dispatcher.Launch(context.Background(), &types.LaunchRequest{UserID: "alice", Image: "nginx"})
	require.NoError(t, err)
	assert.Equal(t, "xyz789", container.ID)
}

func TestLaunch_NoCapacityLeavesNoRow(t *testing.T) {
	store := newTestStore(t)

	dispatcher := NewDispatcher(store, "")
	_, _, err := dispatcher.Launch(context.Background(), &types.LaunchRequest{UserID: "alice", Image: "nginx"})
	assert.True(t, errors.Is(err, ErrNoCapacity))

	containers, err := store.ListContainers()
	require.NoError(t, err)
	assert.Empty(t, containers)
}

func TestLaunch_NodeErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"image not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store := newTestStore(t)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: srv.URL, Healthy: true}))

	dispatcher := NewDispatcher(store, "")
	_, _, err := dispatcher.Launch(context.Background(), &types.LaunchRequest{UserID: "alice", Image: "bad"})
	require.Error(t, err)

	containers, err := store.ListContainers()
	require.NoError(t, err)
	assert.Empty(t, containers)
}
