package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/types"
)

func newTestRouter(t *testing.T) (*Router, storage.Store) {
	t.Helper()
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "fabric.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewRouter(store, "node-token", "signkey"), store
}

func seedService(t *testing.T, store storage.Store, id string, kind types.ServiceKind, serviceURL string, healthy bool) {
	t.Helper()

	u, err := url.Parse(serviceURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	require.NoError(t, store.CreateService(&types.Service{
		ID:          id,
		Kind:        kind,
		ContainerID: "ctr-" + id,
		NodeID:      "node-1",
		IPAddress:   u.Hostname(),
		Port:        port,
		Status:      types.ServiceStatusRunning,
		Healthy:     healthy,
	}))
}

func TestGet_UnknownService(t *testing.T) {
	router, _ := newTestRouter(t)

	_, err := router.Get(types.ServiceKindBucket, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Equal(t, "Bucket service not found", err.Error())
}

func TestGet_WrongKind(t *testing.T) {
	router, store := newTestRouter(t)
	seedService(t, store, "db-1", types.ServiceKindSQL, "http://10.0.0.2:32770", true)

	_, err := router.Get(types.ServiceKindBucket, "db-1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestResolve_UnhealthyServiceNotContacted(t *testing.T) {
	contacted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contacted = true
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "nosql-1", types.ServiceKindNoSQL, srv.URL, false)

	_, err := router.NoSQLScan(context.Background(), "nosql-1", "users")

	var nh *NotHealthyError
	require.True(t, errors.As(err, &nh))
	assert.Equal(t, "NoSQL service is not healthy", err.Error())
	assert.False(t, contacted)
}

func TestSQLQuery_SendsSignature(t *testing.T) {
	var signature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sql/query", r.URL.Path)
		signature = r.Header.Get("x-signature")
		w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "db-1", types.ServiceKindSQL, srv.URL, true)

	out, err := router.SQLQuery(context.Background(), "db-1", map[string]any{"query": "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "signkey", signature)
	assert.Equal(t, "db-1", out["service_id"])
	assert.NotNil(t, out["query_result"])
}

func TestSQLUpdateConfig_PartialUpdate(t *testing.T) {
	var pushed map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/config/resource-limits" {
			pushed = map[string]any{"called": true}
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "db-1", types.ServiceKindSQL, srv.URL, true)

	ram := 4096
	out, err := router.SQLUpdateConfig(context.Background(), "db-1", &SQLConfigUpdate{MaxRAMMB: &ram})
	require.NoError(t, err)
	assert.NotNil(t, pushed)

	cfg := out["updated_config"].(map[string]any)
	assert.Equal(t, 4096, cfg["max_ram_mb"])
	assert.Equal(t, 90, cfg["max_cpu_percent"])

	svc, err := store.GetService("db-1")
	require.NoError(t, err)
	assert.Equal(t, 4096, svc.ResourceLimits.MaxRAMMB)
}

func TestSQLUpdateConfig_NameOnlySkipsPush(t *testing.T) {
	var limitsPushed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/config/resource-limits" {
			limitsPushed = true
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "db-1", types.ServiceKindSQL, srv.URL, true)

	name := "analytics"
	_, err := router.SQLUpdateConfig(context.Background(), "db-1", &SQLConfigUpdate{InstanceName: &name})
	require.NoError(t, err)
	assert.False(t, limitsPushed)

	svc, err := store.GetService("db-1")
	require.NoError(t, err)
	assert.Equal(t, "analytics", svc.InstanceName)
}

func TestSecretGet_MissingSecretYieldsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "secrets-1", types.ServiceKindSecrets, srv.URL, true)

	out, err := router.SecretGet(context.Background(), "secrets-1", "api-key")
	require.NoError(t, err)
	assert.Nil(t, out["secret"])
}

func TestSecretGet_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/secrets/api-key", r.URL.Path)
		w.Write([]byte(`{"name":"api-key","value":"s3cret"}`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "secrets-1", types.ServiceKindSecrets, srv.URL, true)

	out, err := router.SecretGet(context.Background(), "secrets-1", "api-key")
	require.NoError(t, err)
	secret := out["secret"].(map[string]any)
	assert.Equal(t, "s3cret", secret["value"])
}

func TestQueueRead_DefaultLimit(t *testing.T) {
	var limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "queue-1", types.ServiceKindQueue, srv.URL, true)

	_, err := router.QueueRead(context.Background(), "queue-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "10", limit)
}

func TestQueueDeleteMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/queue/msg-7", r.URL.Path)
		w.Write([]byte(`{"deleted":true}`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "queue-1", types.ServiceKindQueue, srv.URL, true)

	out, err := router.QueueDeleteMessage(context.Background(), "queue-1", "msg-7")
	require.NoError(t, err)
	assert.Equal(t, true, out["deleted"])
}

func TestBucketUpload_Multipart(t *testing.T) {
	var filename, content string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		filename = header.Filename
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		content = string(data)
		w.Write([]byte(`{"uploaded":true}`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "bucket-1", types.ServiceKindBucket, srv.URL, true)

	out, err := router.BucketUpload(context.Background(), "bucket-1", "report.csv", "text/csv", strings.NewReader("a,b,c"))
	require.NoError(t, err)
	assert.Equal(t, "report.csv", filename)
	assert.Equal(t, "a,b,c", content)
	assert.Equal(t, true, out["uploaded"])
}

func TestBucketDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/download/report.csv", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("a,b,c"))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "bucket-1", types.ServiceKindBucket, srv.URL, true)

	dl, err := router.BucketDownload(context.Background(), "bucket-1", "report.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", string(dl.Content))
	assert.Equal(t, "text/csv", dl.ContentType)
	assert.Equal(t, "report.csv", dl.Filename)
}

func TestForward_ServiceErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "syntax error", http.StatusBadRequest)
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "db-1", types.ServiceKindSQL, srv.URL, true)

	_, err := router.SQLQuery(context.Background(), "db-1", map[string]any{"query": "SELEC"})

	var se *nodeclient.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "syntax error")
}

func TestCheckHealth_PersistsOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "bucket-1", types.ServiceKindBucket, srv.URL, true)

	out, err := router.CheckHealth(context.Background(), types.ServiceKindBucket, "bucket-1")
	require.NoError(t, err)
	assert.Equal(t, false, out["is_healthy"])

	svc, err := store.GetService("bucket-1")
	require.NoError(t, err)
	assert.False(t, svc.Healthy)
	assert.False(t, svc.LastHealthCheck.IsZero())
}

func TestNoSQLQuery_EncodesParams(t *testing.T) {
	var field, value string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nosql/users/query", r.URL.Path)
		field = r.URL.Query().Get("field")
		value = r.URL.Query().Get("value")
		w.Write([]byte(`[{"id":"u1"}]`))
	}))
	defer srv.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "nosql-1", types.ServiceKindNoSQL, srv.URL, true)

	out, err := router.NoSQLQuery(context.Background(), "nosql-1", "users", "email", "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "email", field)
	assert.Equal(t, "a@b.c", value)
	assert.Equal(t, "users", out["collection_name"])
}

func TestRemove_BucketStopsAndDeletesContainer(t *testing.T) {
	var nodeCalls []string
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nodeCalls = append(nodeCalls, r.Method+" "+r.URL.Path)
		assert.Equal(t, "Bearer node-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer node.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "bucket-1", types.ServiceKindBucket, "http://10.0.0.2:32768", true)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: node.URL, Healthy: true}))
	require.NoError(t, store.CreateContainer(&types.Container{ID: "ctr-bucket-1", NodeID: "node-1", Status: types.ContainerStatusRunning}))

	out, err := router.Remove(context.Background(), types.ServiceKindBucket, "bucket-1")
	require.NoError(t, err)
	assert.Equal(t, "Bucket service bucket-1 removed successfully", out["message"])
	assert.Equal(t, []string{
		"POST /containers/ctr-bucket-1/stop",
		"DELETE /containers/ctr-bucket-1",
	}, nodeCalls)

	_, err = store.GetService("bucket-1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = store.GetContainer("ctr-bucket-1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRemove_SQLOnlyStops(t *testing.T) {
	var nodeCalls []string
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nodeCalls = append(nodeCalls, r.Method+" "+r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer node.Close()

	router, store := newTestRouter(t)
	seedService(t, store, "db-1", types.ServiceKindSQL, "http://10.0.0.2:32770", true)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: node.URL, Healthy: true}))
	require.NoError(t, store.CreateContainer(&types.Container{ID: "ctr-db-1", NodeID: "node-1", Status: types.ContainerStatusRunning}))

	out, err := router.Remove(context.Background(), types.ServiceKindSQL, "db-1")
	require.NoError(t, err)
	assert.Equal(t, "Database service db-1 removed successfully", out["message"])
	assert.Equal(t, []string{"POST /containers/ctr-db-1/stop"}, nodeCalls)
}

func TestRemove_DeadNodeStillCleansCatalog(t *testing.T) {
	router, store := newTestRouter(t)
	seedService(t, store, "queue-1", types.ServiceKindQueue, "http://10.0.0.2:32790", true)
	require.NoError(t, store.CreateNode(&types.Node{ID: "node-1", URL: "http://10.0.0.9:8001", Healthy: false}))
	require.NoError(t, store.CreateContainer(&types.Container{ID: "ctr-queue-1", NodeID: "node-1", Status: types.ContainerStatusRunning}))

	_, err := router.Remove(context.Background(), types.ServiceKindQueue, "queue-1")
	require.NoError(t, err)

	_, err = store.GetService("queue-1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = store.GetContainer("ctr-queue-1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
