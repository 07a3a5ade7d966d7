/*
Package api is the HTTP front door of the control plane.

The surface mirrors the component split underneath it: node
registration and probes, container lifecycle, managed-service launch
endpoints (/launchBucket, /launchDB, ...), per-kind service catalogs
with data-plane forwarders, the WebSocket terminal proxy and the
billing read endpoints.

Every request passes through the observability middleware (structured
request log, request counter, latency histogram) and a recovery
wrapper. Mutating routes and read routes carry separate per-client-IP
token buckets; exceeding one answers 429.

Errors use a single {"detail": "..."} envelope. Component errors map
to statuses in one place: catalog misses to 404, no capacity and
unavailable dependencies to 503, launch readiness timeouts to 500,
and upstream node or service failures pass their status through.
*/
package api
