package service

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/askgate/askgate-go/internal/core/domain"
	"github.com/askgate/askgate-go/internal/telemetry/logger"
	"github.com/askgate/askgate-go/internal/telemetry/metric"
)

// QueuePublisher is the outbound half of the queue gateway the relay
// depends on. Publish is a synchronous hand-off acknowledgement, not
// an acknowledgement of processing.
type QueuePublisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// AskRequest is an inbound request from a live connection.
type AskRequest struct {
	APIKey      string `json:"API_KEY,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Question    string `json:"question"`
}

// AskResult describes an accepted request after the publish hand-off.
type AskResult struct {
	TokenID       int64
	AccessToken   string
	CorrelationID string
}

// RelayConfig holds relay tuning parameters.
type RelayConfig struct {
	// InputQueue is the queue requests are published to.
	InputQueue string
	// RoutedWindowSize bounds the duplicate-detection window.
	RoutedWindowSize int
}

// DefaultRelayConfig returns the default relay configuration.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		InputQueue:       "queue_input",
		RoutedWindowSize: 4096,
	}
}

// RelayService correlates requests published to the input queue with
// worker responses consumed from the output queue, and routes each
// response back to the exact connection that issued the request.
//
// The request path (Ask) and the response path (HandleDelivery) run
// independently and share state only through the connection registry
// and the routed window.
type RelayService struct {
	auth      *AuthService
	tokens    *TokenService
	registry  *Registry
	publisher QueuePublisher
	routed    *routedWindow
	cfg       RelayConfig
	metrics   *metric.Registry
	log       logger.Logger
}

// NewRelayService creates a new RelayService.
func NewRelayService(
	auth *AuthService,
	tokens *TokenService,
	registry *Registry,
	publisher QueuePublisher,
	cfg RelayConfig,
	metrics *metric.Registry,
	log logger.Logger,
) *RelayService {
	if cfg.InputQueue == "" {
		cfg.InputQueue = DefaultRelayConfig().InputQueue
	}
	if cfg.RoutedWindowSize <= 0 {
		cfg.RoutedWindowSize = DefaultRelayConfig().RoutedWindowSize
	}
	return &RelayService{
		auth:      auth,
		tokens:    tokens,
		registry:  registry,
		publisher: publisher,
		routed:    newRoutedWindow(cfg.RoutedWindowSize),
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
	}
}

// Connect registers a new live connection and returns its connection ID.
func (s *RelayService) Connect(p Pusher) (string, error) {
	connID, err := s.registry.Connect(p)
	if err != nil {
		return "", err
	}
	s.metrics.ConnectionsActive.Inc()
	s.metrics.ConnectionsTotal.Inc()
	s.log.Debug("connection registered", "conn_id", connID)
	return connID, nil
}

// Disconnect removes a connection and revokes its bound token, if any.
// Runs at most once per connection; later calls are no-ops.
func (s *RelayService) Disconnect(ctx context.Context, connID string) {
	sess, err := s.registry.RevokeOnDisconnect(ctx, connID, s.tokens)
	if sess == nil {
		return
	}
	s.metrics.ConnectionsActive.Dec()
	if err != nil {
		s.log.Error("token revocation on disconnect failed",
			"conn_id", connID, "error", err)
		return
	}
	if sess.HasToken() {
		s.metrics.TokensRevoked.Inc()
	}
	s.log.Debug("connection removed", "conn_id", connID,
		"had_token", sess.HasToken())
}

// Ask validates an inbound request, publishes its envelope to the
// input queue, and returns the queued result. Every returned error is
// a domain error whose rejection reason is safe to send back to the
// originating connection.
func (s *RelayService) Ask(ctx context.Context, connID string, req AskRequest) (*AskResult, error) {
	start := time.Now()

	result, err := s.ask(ctx, connID, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQueueUnavailable), errors.Is(err, domain.ErrStorageError):
			s.metrics.RequestsTotal.WithLabelValues("failed").Inc()
		default:
			s.metrics.RequestsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	s.metrics.RequestsTotal.WithLabelValues("queued").Inc()
	s.metrics.AskDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

func (s *RelayService) ask(ctx context.Context, connID string, req AskRequest) (*AskResult, error) {
	if req.Question == "" {
		return nil, domain.ErrQuestionMissing
	}

	sess, _, ok := s.registry.Resolve(connID)
	if !ok {
		return nil, domain.ErrConnectionGone
	}

	tok, err := s.authorize(ctx, connID, sess, req)
	if err != nil {
		return nil, err
	}

	env, err := domain.NewRequestEnvelope(connID, tok.Value, req.Question)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	if err := s.publisher.Publish(ctx, s.cfg.InputQueue, body); err != nil {
		s.metrics.PublishFailures.Inc()
		s.log.Warn("publish hand-off failed",
			"conn_id", connID, "queue", s.cfg.InputQueue, "error", err)
		return nil, domain.ErrQueueUnavailable.WithCause(err)
	}

	s.log.Info("request queued",
		"conn_id", connID,
		"correlation_id", env.CorrelationID,
		"token_id", tok.ID)

	return &AskResult{
		TokenID:       tok.ID,
		AccessToken:   tok.Value,
		CorrelationID: env.CorrelationID,
	}, nil
}

// authorize resolves the access token for a request: a supplied token
// must exist in the store and match the session binding; otherwise the
// API key is checked and the session token is reused if it still
// validates against the store, else freshly issued and bound. Every
// returned token passed store validation on this call, so no envelope
// is published with a revoked token.
func (s *RelayService) authorize(ctx context.Context, connID string, sess *domain.Session, req AskRequest) (*domain.AccessToken, error) {
	if req.AccessToken != "" {
		tok, err := s.tokens.Validate(ctx, req.AccessToken)
		if err != nil {
			return nil, err
		}
		if sess.HasToken() && sess.AccessToken != tok.Value {
			return nil, domain.ErrTokenMismatch
		}
		if !sess.HasToken() {
			if err := s.registry.Bind(connID, tok); err != nil {
				return nil, err
			}
		}
		return tok, nil
	}

	if req.APIKey == "" {
		return nil, domain.ErrAPIKeyMissing
	}
	if err := s.auth.ValidateAPIKey(req.APIKey); err != nil {
		return nil, err
	}

	if sess.HasToken() {
		ok, err := s.tokens.Exists(ctx, sess.AccessToken)
		if err != nil {
			return nil, err
		}
		if ok {
			return &domain.AccessToken{Value: sess.AccessToken, ID: sess.TokenID}, nil
		}
		// The bound token was revoked out of band. The stale binding
		// is swapped for a fresh token instead of rejecting a request
		// that carries a valid API key.
		return s.issueAndBind(ctx, connID, s.registry.Rebind)
	}

	return s.issueAndBind(ctx, connID, s.registry.Bind)
}

// issueAndBind issues a fresh token and binds it through the given
// registry operation. A token that cannot be bound is orphaned unless
// revoked here.
func (s *RelayService) issueAndBind(ctx context.Context, connID string, bind func(string, *domain.AccessToken) error) (*domain.AccessToken, error) {
	tok, err := s.tokens.Issue(ctx)
	if err != nil {
		return nil, err
	}
	if err := bind(connID, tok); err != nil {
		if revokeErr := s.tokens.Revoke(ctx, tok.Value); revokeErr != nil {
			s.log.Error("orphaned token revocation failed",
				"error", revokeErr)
		}
		return nil, err
	}
	s.metrics.TokensIssued.Inc()
	return tok, nil
}

// HandleDelivery processes one raw message from the output queue. It
// always returns nil: every failure mode is a silent drop, counted and
// logged at debug, so consumption of subsequent messages is never
// blocked and nothing is ever requeued from here.
func (s *RelayService) HandleDelivery(ctx context.Context, body []byte) error {
	var env domain.ResponseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.drop("malformed", "", "", err)
		return nil
	}
	if err := env.Validate(); err != nil {
		s.drop("malformed", env.ConnID, env.CorrelationID, err)
		return nil
	}

	sess, pusher, ok := s.registry.Resolve(env.ConnID)
	if !ok {
		s.drop("gone", env.ConnID, env.CorrelationID, nil)
		return nil
	}
	if env.AccessToken != "" && sess.AccessToken != env.AccessToken {
		s.drop("mismatch", env.ConnID, env.CorrelationID, nil)
		return nil
	}

	// Mark before pushing so a concurrently redelivered copy of the
	// same correlation_id is pushed at most once.
	if !s.routed.FirstSeen(env.CorrelationID) {
		s.drop("duplicate", env.ConnID, env.CorrelationID, nil)
		return nil
	}

	msg := &AnswerMessage{
		Status:   StatusAnswered,
		Question: env.Question,
		Answer:   env.Answer,
	}
	if err := pusher.Push(msg); err != nil {
		s.drop("gone", env.ConnID, env.CorrelationID, err)
		return nil
	}

	s.metrics.ResponsesRouted.Inc()
	s.log.Debug("response routed",
		"conn_id", env.ConnID, "correlation_id", env.CorrelationID)
	return nil
}

func (s *RelayService) drop(reason, connID, correlationID string, err error) {
	s.metrics.ResponsesDropped.WithLabelValues(reason).Inc()
	args := []any{"reason", reason}
	if connID != "" {
		args = append(args, "conn_id", connID)
	}
	if correlationID != "" {
		args = append(args, "correlation_id", correlationID)
	}
	if err != nil {
		args = append(args, "error", err)
	}
	s.log.Debug("response dropped", args...)
}

// ============================================================================
// Routed window
// ============================================================================

// routedWindow is a bounded LRU set of recently routed correlation
// IDs. The underlying queue transport is at-least-once; the window
// turns that into at-most-once delivery to the connection.
type routedWindow struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[string]*list.Element
}

func newRoutedWindow(capacity int) *routedWindow {
	return &routedWindow{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// FirstSeen records the ID and reports whether this is its first
// appearance within the window. Check and insert are one atomic step.
func (w *routedWindow) FirstSeen(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if elem, ok := w.index[id]; ok {
		w.ll.MoveToFront(elem)
		return false
	}

	w.index[id] = w.ll.PushFront(id)
	for w.ll.Len() > w.capacity {
		oldest := w.ll.Back()
		w.ll.Remove(oldest)
		delete(w.index, oldest.Value.(string))
	}
	return true
}

// Len returns the number of IDs currently tracked.
func (w *routedWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ll.Len()
}
