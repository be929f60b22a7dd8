// Package wsserver provides the WebSocket server for AskGate.
//
// Each accepted connection is registered with the relay, read in its
// own goroutine, and removed (revoking its access token) when the
// read loop ends, whatever the reason.
package wsserver
