package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/uwscloud/fabric/pkg/billing"
	"github.com/uwscloud/fabric/pkg/config"
	"github.com/uwscloud/fabric/pkg/containers"
	"github.com/uwscloud/fabric/pkg/launcher"
	"github.com/uwscloud/fabric/pkg/log"
	"github.com/uwscloud/fabric/pkg/metrics"
	"github.com/uwscloud/fabric/pkg/registry"
	"github.com/uwscloud/fabric/pkg/router"
	"github.com/uwscloud/fabric/pkg/scheduler"
	"github.com/uwscloud/fabric/pkg/storage"
	"github.com/uwscloud/fabric/pkg/terminal"
	"github.com/uwscloud/fabric/pkg/types"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Deps carries the components the front door exposes. Every field is
// required except Billing, which disables the /billing routes when nil.
type Deps struct {
	Store      storage.Store
	Registry   *registry.Registry
	Dispatcher *scheduler.Dispatcher
	Containers *containers.Manager
	Launcher   *launcher.Launcher
	Router     *router.Router
	Terminal   *terminal.Proxy
	Billing    *billing.Accountant

	RateLimit config.RateLimitConfig
}

// Server is the HTTP front door of the control plane.
type Server struct {
	store      storage.Store
	registry   *registry.Registry
	dispatcher *scheduler.Dispatcher
	containers *containers.Manager
	launcher   *launcher.Launcher
	router     *router.Router
	terminal   *terminal.Proxy
	billing    *billing.Accountant

	// Reads get triple the write allowance.
	readLimit  *ipRateLimiter
	writeLimit *ipRateLimiter

	logger zerolog.Logger
}

// NewServer assembles the front door.
func NewServer(deps Deps) *Server {
	rl := deps.RateLimit
	if rl.RPS <= 0 {
		rl.RPS = config.DefaultRateLimitRPS
	}
	if rl.Burst <= 0 {
		rl.Burst = config.DefaultRateLimitBurst
	}

	return &Server{
		store:      deps.Store,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		containers: deps.Containers,
		launcher:   deps.Launcher,
		router:     deps.Router,
		terminal:   deps.Terminal,
		billing:    deps.Billing,
		readLimit:  newIPRateLimiter(rl.RPS*3, rl.Burst*3),
		writeLimit: newIPRateLimiter(rl.RPS, rl.Burst),
		logger:     log.WithComponent("api"),
	}
}

// Handler builds the route table wrapped in the logging, metrics and
// recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Core
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /healthz", metrics.HealthHandler())
	mux.Handle("GET /ready", metrics.ReadyHandler())
	mux.Handle("GET /live", metrics.LivenessHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	// Nodes
	mux.HandleFunc("POST /register_node/{node_id}", s.write(s.handleRegisterNode))
	mux.HandleFunc("GET /nodes", s.read(s.handleListNodes))
	mux.HandleFunc("GET /health_check/{node_id}", s.read(s.handleProbeNode))

	// Containers
	mux.HandleFunc("POST /launch", s.write(s.handleLaunchContainer))
	mux.HandleFunc("GET /containers", s.read(s.handleListContainers))
	mux.HandleFunc("GET /user/{user_id}/containers", s.read(s.handleUserContainers))
	mux.HandleFunc("GET /containers/{container_id}/status", s.read(s.handleContainerStatus))
	mux.HandleFunc("GET /containers/{container_id}/ports", s.read(s.handleContainerPorts))
	mux.HandleFunc("POST /containers/{container_id}/start", s.write(s.handleContainerStart))
	mux.HandleFunc("POST /containers/{container_id}/stop", s.write(s.handleContainerStop))
	mux.HandleFunc("POST /containers/{container_id}/restart", s.write(s.handleContainerRestart))
	mux.HandleFunc("DELETE /containers/{container_id}", s.write(s.handleContainerDelete))
	mux.HandleFunc("GET /templates", s.read(s.handleTemplates))

	// Managed service launches
	mux.HandleFunc("POST /launchBucket", s.write(s.launchService(types.ServiceKindBucket)))
	mux.HandleFunc("POST /launchDB", s.write(s.launchService(types.ServiceKindSQL)))
	mux.HandleFunc("POST /launchNoSQL", s.write(s.launchService(types.ServiceKindNoSQL)))
	mux.HandleFunc("POST /launchQueue", s.write(s.launchService(types.ServiceKindQueue)))
	mux.HandleFunc("POST /launchSecrets", s.write(s.launchService(types.ServiceKindSecrets)))

	// Catalog and health operations, one route set per kind.
	for _, kind := range types.Kinds() {
		prefix := "/" + string(kind) + "-services"
		mux.HandleFunc("GET "+prefix, s.read(s.listServices(kind)))
		mux.HandleFunc("GET "+prefix+"/{service_id}", s.read(s.getService(kind)))
		mux.HandleFunc("GET "+prefix+"/{service_id}/health", s.read(s.serviceHealth(kind)))
		mux.HandleFunc("DELETE "+prefix+"/{service_id}", s.write(s.removeService(kind)))
	}

	// Bucket data plane
	mux.HandleFunc("GET /bucket-services/{service_id}/files", s.read(s.handleBucketFiles))
	mux.HandleFunc("POST /bucket-services/{service_id}/upload", s.write(s.handleBucketUpload))
	mux.HandleFunc("GET /bucket-services/{service_id}/download/{filename}", s.read(s.handleBucketDownload))
	mux.HandleFunc("DELETE /bucket-services/{service_id}/delete/{filename}", s.write(s.handleBucketDeleteFile))

	// SQL data plane
	mux.HandleFunc("POST /db-services/{service_id}/query", s.write(s.handleSQLQuery))
	mux.HandleFunc("GET /db-services/{service_id}/tables", s.read(s.handleSQLTables))
	mux.HandleFunc("GET /db-services/{service_id}/schema/{table}", s.read(s.handleSQLSchema))
	mux.HandleFunc("PUT /db-services/{service_id}/config", s.write(s.handleSQLUpdateConfig))
	mux.HandleFunc("GET /db-services/{service_id}/stats", s.read(s.handleSQLStats))

	// NoSQL data plane
	mux.HandleFunc("GET /nosql-services/{service_id}/collections", s.read(s.handleNoSQLCollections))
	mux.HandleFunc("POST /nosql-services/{service_id}/collections/{collection}", s.write(s.handleNoSQLCreateCollection))
	mux.HandleFunc("POST /nosql-services/{service_id}/collections/{collection}/documents", s.write(s.handleNoSQLSave))
	mux.HandleFunc("GET /nosql-services/{service_id}/collections/{collection}/query", s.read(s.handleNoSQLQuery))
	mux.HandleFunc("GET /nosql-services/{service_id}/collections/{collection}/scan", s.read(s.handleNoSQLScan))
	mux.HandleFunc("GET /nosql-services/{service_id}/collections/{collection}/documents/{entity_id}", s.read(s.handleNoSQLGet))
	mux.HandleFunc("PUT /nosql-services/{service_id}/collections/{collection}/documents/{entity_id}", s.write(s.handleNoSQLUpdate))
	mux.HandleFunc("DELETE /nosql-services/{service_id}/collections/{collection}/documents/{entity_id}", s.write(s.handleNoSQLDelete))

	// Queue data plane
	mux.HandleFunc("POST /queue-services/{service_id}/messages", s.write(s.handleQueueAdd))
	mux.HandleFunc("GET /queue-services/{service_id}/messages", s.read(s.handleQueueRead))
	mux.HandleFunc("DELETE /queue-services/{service_id}/messages/{message_id}", s.write(s.handleQueueDeleteMessage))

	// Secrets data plane
	mux.HandleFunc("POST /secrets-services/{service_id}/secrets", s.write(s.handleSecretCreate))
	mux.HandleFunc("GET /secrets-services/{service_id}/secrets", s.read(s.handleSecretList))
	mux.HandleFunc("GET /secrets-services/{service_id}/secrets/{name}", s.read(s.handleSecretGet))
	mux.HandleFunc("DELETE /secrets-services/{service_id}/secrets/{name}", s.write(s.handleSecretDelete))

	// Terminal proxy. Not rate limited, one connection is long-lived.
	mux.HandleFunc("GET /ws/terminal/{node_id}/{container_id}", s.handleTerminal)

	// Billing
	if s.billing != nil {
		mux.HandleFunc("GET /billing/usage", s.read(s.handleBillingUsage))
		mux.HandleFunc("GET /billing/invoices", s.read(s.handleBillingInvoices))
		mux.HandleFunc("GET /billing/rates", s.read(s.handleBillingRates))
	}

	return s.withRecovery(s.withObservability(mux))
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	s.terminal.Handle(w, r, r.PathValue("node_id"), r.PathValue("container_id"))
}
