// Package memory provides in-memory storage implementations for
// tests and ephemeral deployments. Nothing here survives a restart.
package memory
