// Package config loads the server configuration from built-in
// defaults, an optional YAML file and environment overrides, applied
// in that order. DATABASE_URL keeps accepting a sqlite:/// prefix for
// compatibility with older deployments.
package config
