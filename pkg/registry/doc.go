/*
Package registry tracks the worker-node fleet.

Registration is an upsert: a node that re-registers refreshes its URL,
is marked healthy and keeps its original registered_at. Advertise URLs
on 0.0.0.0 are rewritten to the address the node was actually seen
from, honoring X-Forwarded-For when the peer is a local proxy.

A background loop probes every node's /health on a fixed interval and
flips the healthy bit; nodes are never deleted, only marked unhealthy.
The active_nodes gauge follows the healthy count. Probe is the same
check run on demand for a single node.
*/
package registry
