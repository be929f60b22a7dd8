package wsserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a WebSocket connection with serialized writes. It is
// the relay's push target for this connection.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Push writes one JSON message to the peer. Safe for concurrent use;
// a write deadline bounds how long a slow peer can hold the lock.
func (c *wsConn) Push(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// ping sends a control ping frame under the write lock.
func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// close marks the connection closed and closes the underlying socket.
// Push calls after close fail fast instead of writing to a dead peer.
func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn.Close()
}
