/*
Package metrics provides Prometheus metrics for the Fabric control plane.

All metrics are package-level variables registered in init() and exported
via the standard promhttp handler at /metrics.

# Metrics

HTTP:
  - orchestrator_requests_total{method,endpoint,status}: request counter
  - orchestrator_request_duration_seconds: request latency histogram

Infrastructure:
  - active_nodes: healthy registered nodes
  - active_containers: running containers
  - websocket_connections: open terminal proxy sessions

Managed services (healthy counts, one gauge per kind):
  - active_bucket_services
  - active_db_services
  - active_nosql_services
  - active_queue_services
  - active_secrets_services

# Collector

The Collector recomputes gauges from the catalog every 15 seconds so
they are correct after a control-plane restart. The registry and
reconciler loops also set them inline after each sweep.

# Health Endpoints

The package also carries the health board behind /healthz, /ready and
/live. Components report their state at startup and on every change;
readiness waits for the catalog, the liveness loop and the front door.

# Usage

	metrics.ActiveNodes.Set(float64(healthy))

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RequestLatency)

	mux.Handle("/metrics", metrics.Handler())
*/
package metrics
