/*
Package reconciler keeps managed services healthy.

Every 30 seconds the reconciler walks all service rows in the catalog
and probes each service's /health endpoint directly (not through the
node). The probe outcome is written back to the row: a responding
service is running and healthy, a silent one is marked unhealthy and
gets exactly one recovery attempt per sweep, a container start on its
node. When the start succeeds both the service and its container go
back to running; when it fails, or the node itself is gone, the service
is marked failed and recreation is left to the operator.

	     ┌──────────────────────────────┐
	     │     Sweep (every 30s)        │
	     └──────────────┬───────────────┘
	                    │ per service
	                    ▼
	          GET http://ip:port/health
	             │                │
	          healthy         unhealthy
	             │                │
	             ▼                ▼
	          running    POST /containers/{id}/start
	                         │           │
	                        ok         error
	                         │           │
	                         ▼           ▼
	                      running      failed

Sweeps self-serialize, so a slow fleet delays the next sweep instead of
stacking probes. A failure on one service never aborts the sweep; the
remaining services are still probed and the per-kind healthy gauges are
always updated from what the sweep observed.

The reconciler is level-triggered and stateless between sweeps: every
decision is made from the current catalog row and the current probe,
so missed cycles converge on the next one.
*/
package reconciler
