// Package storage provides durable token storage for AskGate.
//
// The token store is a thin mapping from access-token value to its
// record, backed by an embedded KV engine. The KVEngine abstraction
// keeps the store independent of the concrete engine; Badger is the
// durable implementation, and internal/storage/memory provides an
// ephemeral one for tests and cache-style deployments.
package storage
