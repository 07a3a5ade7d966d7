/*
Package log provides structured logging for Fabric using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Thread-safe concurrent writes

Configuration:
  - Level: debug/info/warn/error
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithNodeID: Add node ID context
  - WithServiceID: Add service ID context
  - WithContainerID: Add container ID context

# Usage

Initializing the Logger:

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component Loggers:

	registryLog := log.WithComponent("registry")
	registryLog.Info().Str("node_id", "node-1").Msg("node registered")

Structured Logging:

	log.Logger.Error().
		Err(err).
		Str("service_id", "db-a1b2c3d4").
		Msg("service health check failed")

# Integration Points

This package integrates with:

  - pkg/registry: Logs node registration and liveness probes
  - pkg/reconciler: Logs service health sweeps and restarts
  - pkg/scheduler: Logs placement decisions
  - pkg/launcher: Logs service launch progress
  - pkg/api: Logs HTTP requests and errors
  - pkg/billing: Logs usage sweeps and invoice generation

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
