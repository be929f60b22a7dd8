// Package service provides the domain services for AskGate: the access
// control gate, the token lifecycle, the connection registry, and the
// relay engine that correlates queue responses back to live connections.
package service
