// Package internal holds packages private to this module.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: binary configuration from env, .env and YAML
//   - logging: zap logger construction for the binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
package internal
