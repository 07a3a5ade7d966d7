/*
Package scheduler places workloads on worker nodes.

The Dispatcher is the single entry point for placement: it picks a
healthy node, forwards the launch request through the node client and
records the resulting container in the catalog. Placement is a single
attempt; when the chosen node fails the launch, the error surfaces to
the caller rather than falling through to another node.

# Selection

	┌─────────────┐    ┌──────────────┐    ┌──────────────┐
	│ catalog:    │───▶│ sort by ID   │───▶│ Selector     │
	│ healthy     │    │ (stable      │    │ (FirstHealthy│
	│ nodes       │    │  ordering)   │    │  by default) │
	└─────────────┘    └──────────────┘    └──────────────┘

The Selector interface keeps the strategy pluggable; FirstHealthy is
deliberately simple, the fleet is small and nodes are interchangeable.
An empty candidate list yields ErrNoCapacity, which the API maps to a
503 with detail "No healthy nodes available".

# Container rows

A successful launch always produces a catalog row. When the node's
response carries no usable container ID (older builds answer with "id",
some with nothing), the dispatcher generates a container-<8 hex> ID and
logs a warning, so the container stays manageable even if the node's
answer was incomplete.
*/
package scheduler
