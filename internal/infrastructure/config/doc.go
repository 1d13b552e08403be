// Package config loads and validates Latchwork Core configuration.
//
// Configuration comes from a YAML file with environment variable overrides
// (LATCHWORK_SECTION_KEY pattern). Secrets — the JWT signing secret and the
// controller device key — must be at least 32 characters and are expected to
// arrive via environment variables in production.
package config
