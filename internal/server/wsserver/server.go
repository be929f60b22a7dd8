package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/askgate/askgate-go/internal/core/domain"
	"github.com/askgate/askgate-go/internal/core/service"
	"github.com/askgate/askgate-go/internal/telemetry/logger"
)

// Timing and size limits for client connections.
const (
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 60 * time.Second
	defaultReadLimit    = 64 * 1024

	// pingPeriod must be shorter than the pong timeout.
	pingPeriod = 50 * time.Second
)

// Config holds WebSocket server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	ReadLimit      int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
}

// Server accepts WebSocket connections and dispatches inbound
// requests to the relay.
type Server struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	relay      *service.RelayService
	cfg        Config
	log        logger.Logger

	// Hijacked connections are invisible to http.Server.Shutdown, so
	// live ones are tracked here and closed on shutdown.
	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

// New creates a new WebSocket server.
func New(cfg Config, relay *service.RelayService, log logger.Logger) *Server {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}

	s := &Server{
		upgrader: makeUpgrader(cfg.AllowedOrigins),
		relay:    relay,
		cfg:      cfg,
		log:      log,
		conns:    make(map[*wsConn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	return s
}

// makeUpgrader builds an upgrader with origin checking. An empty
// allow-list (or a single "*") accepts any origin; requests without
// an Origin header are non-browser clients and always pass.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 ||
		(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return originSet[origin]
		},
	}
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// ListenAndServeTLS starts the server with TLS.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown stops the listener, then closes every live WebSocket
// connection so their read loops exit without waiting for peers to
// disconnect. Each closing loop still runs its deferred disconnect,
// so bound tokens are revoked.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	open := make([]*wsConn, 0, len(s.conns))
	for c := range s.conns {
		open = append(open, c)
	}
	s.mu.Unlock()

	for _, c := range open {
		c.close()
	}
	return err
}

func (s *Server) track(c *wsConn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Handler exposes the HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newWSConn(ws, s.cfg.WriteTimeout)

	connID, err := s.relay.Connect(conn)
	if err != nil {
		s.log.Error("connection registration failed", "error", err)
		conn.close()
		return
	}

	s.log.Info("connection opened", "conn_id", connID, "remote", r.RemoteAddr)
	s.serveConn(r.Context(), connID, conn)
}

// serveConn runs the connection's read loop. Every exit path funnels
// through the deferred disconnect, so the bound token is always
// revoked.
func (s *Server) serveConn(ctx context.Context, connID string, conn *wsConn) {
	s.track(conn)
	defer func() {
		s.untrack(conn)
		s.relay.Disconnect(context.WithoutCancel(ctx), connID)
		conn.close()
		s.log.Info("connection closed", "conn_id", connID)
	}()

	conn.conn.SetReadLimit(s.cfg.ReadLimit)
	if err := conn.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.pingLoop(conn, stopPing)

	for {
		_, payload, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read failed", "conn_id", connID, "error", err)
			}
			return
		}
		s.dispatch(ctx, connID, conn, payload)
	}
}

func (s *Server) pingLoop(conn *wsConn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

// dispatch handles one inbound frame. Every outcome is written back
// only to the originating connection.
func (s *Server) dispatch(ctx context.Context, connID string, conn *wsConn, payload []byte) {
	var req service.AskRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.pushStatus(connID, conn, service.ErrorStatus("malformed_request", "request is not valid JSON"))
		return
	}

	result, err := s.relay.Ask(ctx, connID, req)
	if err != nil {
		s.pushStatus(connID, conn, rejectionStatus(err))
		return
	}

	s.pushStatus(connID, conn, service.QueuedStatus(result.TokenID, result.AccessToken))
}

// rejectionStatus maps a relay error to the client-facing status
// message, hiding anything without a safe rejection reason.
func rejectionStatus(err error) *service.StatusMessage {
	reason := domain.RejectionReason(err)
	if reason == "" {
		return service.ErrorStatus("internal_error", "request failed")
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		return service.ErrorStatus(reason, de.Message)
	}
	return service.ErrorStatus(reason, "")
}

func (s *Server) pushStatus(connID string, conn *wsConn, msg *service.StatusMessage) {
	if err := conn.Push(msg); err != nil {
		s.log.Debug("status write failed", "conn_id", connID, "error", err)
	}
}
