/*
Package nodeclient is the HTTP client for worker nodes.

Every interaction between the control plane and a node goes through this
package: health probes, container lifecycle, managed-service launches
and template listings. The client is deliberately thin:

  - One Client per node URL, safe for concurrent use
  - A bearer token (NODE_AUTH_TOKEN) attached to every request
  - Fixed per-operation timeouts: 10s health, 30s reads, 60s lifecycle
  - No retries; callers decide whether an operation is worth repeating

# Errors

Two failure shapes, kept distinct so callers can translate them:

  - StatusError: the node answered with a non-2xx status. The body is
    preserved; the API relays the node's status and body to the caller.
  - ErrUnreachable (wrapped): the request never completed (connection
    refused, timeout, DNS). The API maps this to a 500.

# Usage

	client := nodeclient.New(node.URL, cfg.NodeAuthToken)
	if err := client.Health(ctx); err != nil {
		// mark node unhealthy
	}

	resp, err := client.LaunchService(ctx, "/launchDB", payload)
	if nodeclient.IsNotFound(err) {
		// node does not know this endpoint
	}
*/
package nodeclient
