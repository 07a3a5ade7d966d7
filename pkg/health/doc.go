/*
Package health probes HTTP /health endpoints.

Both worker nodes and managed services expose a /health endpoint; the
registry and the reconciler drive their liveness decisions off this
checker. A probe is a single GET with a bounded timeout; there is no
retry counting here, the loops that call Check decide what a failure
means.

# Usage

	checker := health.NewHTTPChecker(node.URL + "/health")
	result := checker.Check(ctx)
	if !result.Healthy {
		// mark node down, log result.Message
	}

Builders tune the probe where the defaults (10s timeout, 2xx accepted)
do not fit:

	checker := health.NewHTTPChecker(url).
		WithTimeout(5 * time.Second).
		WithHeader("Authorization", "Bearer "+token)
*/
package health
