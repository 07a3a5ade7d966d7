package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

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

func TestNormalizeAdvertiseURL(t *testing.T) {
	tests := []struct {
		name         string
		rawURL       string
		peerIP       string
		forwardedFor string
		want         string
		wantErr      bool
	}{
		{
			name:   "explicit host unchanged",
			rawURL: "http://10.0.0.5:8001",
			peerIP: "192.168.1.1",
			want:   "http://10.0.0.5:8001",
		},
		{
			name:   "wildcard replaced with peer",
			rawURL: "http://0.0.0.0:8001",
			peerIP: "10.0.0.5",
			want:   "http://10.0.0.5:8001",
		},
		{
			name:         "loopback peer uses forwarded-for",
			rawURL:       "http://0.0.0.0:8001",
			peerIP:       "127.0.0.1",
			forwardedFor: "203.0.113.7, 10.0.0.1",
			want:         "http://203.0.113.7:8001",
		},
		{
			name:         "forwarded-for entries trimmed",
			rawURL:       "http://0.0.0.0:8001",
			peerIP:       "::1",
			forwardedFor: "  203.0.113.7  ",
			want:         "http://203.0.113.7:8001",
		},
		{
			name:         "non-loopback peer ignores forwarded-for",
			rawURL:       "http://0.0.0.0:8001",
			peerIP:       "10.0.0.5",
			forwardedFor: "203.0.113.7",
			want:         "http://10.0.0.5:8001",
		},
		{
			name:    "missing scheme rejected",
			rawURL:  "10.0.0.5:8001",
			peerIP:  "10.0.0.5",
			wantErr: true,
		},
		{
			name:   "trailing slash trimmed",
			rawURL: "http://10.0.0.5:8001/",
			peerIP: "192.168.1.1",
			want:   "http://10.0.0.5:8001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAdvertiseURL(tt.rawURL, tt.peerIP, tt.forwardedFor)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister_NewNode(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(store)

	node, err := registry.Register("node-1", "http://10.0.0.5:8001", "192.168.1.1", "")
	require.NoError(t, err)

	assert.Equal(t, "node-1", node.ID)
	assert.Equal(t, "http://10.0.0.5:8001", node.URL)
	assert.True(t, node.Healthy)
	assert.False(t, node.RegisteredAt.IsZero())

	stored, err := store.GetNode("node-1")
	require.NoError(t, err)
	assert.Equal(t, node.URL, stored.URL)
}

func TestRegister_ReRegistrationKeepsRegisteredAt(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(store)

	first, err := registry.Register("node-1", "http://10.0.0.5:8001", "192.168.1.1", "")
	require.NoError(t, err)

	// Unhealthy in the meantime
	first.Healthy = false
	require.NoError(t, store.UpdateNode(first))

	time.Sleep(10 * time.Millisecond)

	second, err := registry.Register("node-1", "http://10.0.0.6:8001", "192.168.1.1", "")
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.6:8001", second.URL)
	assert.True(t, second.Healthy)
	assert.Equal(t, first.RegisteredAt.Unix(), second.RegisteredAt.Unix())
	assert.True(t, second.LastSeen.After(first.LastSeen) || second.LastSeen.Equal(first.LastSeen))
}

func TestRegister_InvalidURL(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(store)

	_, err := registry.Register("node-1", "not a url", "192.168.1.1", "")
	assert.Error(t, err)
}

func TestProbe_HealthyNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	store := newTestStore(t)
	registry := NewRegistry(store)

	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: srv.URL, Healthy: false}))

	healthy, err := registry.Probe(context.Background(), "node-1")
	require.NoError(t, err)
	assert.True(t, healthy)

	stored, err := store.GetNode("node-1")
	require.NoError(t, err)
	assert.True(t, stored.Healthy)
	assert.False(t, stored.LastHealthCheck.IsZero())
}

func TestProbe_UnreachableNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	store := newTestStore(t)
	registry := NewRegistry(store)

	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: srv.URL, Healthy: true, LastSeen: time.Now()}))

	healthy, err := registry.Probe(context.Background(), "node-1")
	require.NoError(t, err)
	assert.False(t, healthy)

	stored, err := store.GetNode("node-1")
	require.NoError(t, err)
	assert.False(t, stored.Healthy)
}

func TestProbe_UnknownNode(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(store)

	_, err := registry.Probe(context.Background(), "missing")
	assert.Error(t, err)
}

func TestCheckAll_MixedFleet(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()

	store := newTestStore(t)
	registry := NewRegistry(store)

	require.NoError(t, store.CreateNode(&types.Node{ID: "node-up", URL: up.URL, Healthy: false}))
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-down", URL: down.URL, Healthy: true}))

	registry.checkAll()

	upNode, err := store.GetNode("node-up")
	require.NoError(t, err)
	assert.True(t, upNode.Healthy)

	downNode, err := store.GetNode("node-down")
	require.NoError(t, err)
	assert.False(t, downNode.Healthy)
}
