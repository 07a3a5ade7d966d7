/*
Package containers forwards container lifecycle operations to nodes.

Every operation resolves the container row in the catalog, finds the
node that hosts it and forwards the call through the node client. The
catalog row tracks the last known status (running/stopped/failed); the
node remains the source of truth for live state, which is why status
and port queries are forwarded rather than answered from the catalog.

Operations against a container whose node is missing or unhealthy fail
with ErrNodeUnavailable before any network call; the one exception is
Delete, which always removes the catalog row so dead nodes cannot pin
ghost containers forever.

Restart prefers the node's /restart endpoint and falls back to a
stop-then-start sequence when the node answers 404 (older node builds).

Templates come from the first healthy node when one is up; otherwise a
built-in default list (python-web, node-web, nginx) is served so the
endpoint keeps working on an empty fleet.
*/
package containers
