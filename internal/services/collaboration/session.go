package collaboration

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	"openstream/internal/middleware"
	"openstream/internal/models"
	"openstream/internal/presence"
	"openstream/internal/repository"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20 // slideshow payloads are large JSON documents

	cleanupTimeout = 5 * time.Second
)

// Service wires the collaboration channel's collaborators together and
// owns the per-connection configuration.
type Service struct {
	verifier TokenVerifier
	access   AccessChecker
	store    SlideshowStore
	registry presence.Registry
	hub      *Hub

	authTimeout time.Duration
}

func NewService(
	verifier TokenVerifier,
	access AccessChecker,
	store SlideshowStore,
	registry presence.Registry,
	hub *Hub,
	authTimeout time.Duration,
) *Service {
	return &Service{
		verifier:    verifier,
		access:      access,
		store:       store,
		registry:    registry,
		hub:         hub,
		authTimeout: authTimeout,
	}
}

// Hub exposes the service's fan-out hub for lifecycle management.
func (svc *Service) Hub() *Hub {
	return svc.hub
}

type sessionState int

const (
	stateAwaitingAuth sessionState = iota
	stateAuthenticated
	stateClosed
)

// Session is the per-connection protocol state machine. It owns the
// unauthenticated→authenticated lifecycle, the authentication deadline,
// message dispatch, and finally the removal of its own presence entry and
// room membership.
//
// Messages from one connection are processed strictly in arrival order:
// the read pump is the only goroutine dispatching them.
type Session struct {
	info  *models.SessionInfo
	scope models.DocumentScope
	conn  *websocket.Conn
	svc   *Service

	send chan []byte

	// done signals the write pump to flush queued frames and perform the
	// close handshake with closeCode. Written once, guarded by closeOnce.
	done      chan struct{}
	closeCode int
	closeOnce sync.Once

	cleanupOnce sync.Once

	mu        sync.Mutex
	state     sessionState
	principal *models.Principal
	present   bool
	joined    bool

	authTimer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(svc *Service, scope models.DocumentScope, conn *websocket.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		info:   models.NewSessionInfo(scope),
		scope:  scope,
		conn:   conn,
		svc:    svc,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		state:  stateAwaitingAuth,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start arms the authentication deadline and launches the read and write
// pumps.
func (s *Session) Start() {
	s.authTimer = time.AfterFunc(s.svc.authTimeout, s.authDeadlineExpired)
	go s.writePump()
	go s.readPump()
}

// Close terminates the session with a going-away close code. Used on
// server shutdown; client disconnects and protocol errors take their own
// paths.
func (s *Session) Close() {
	s.close(websocket.CloseGoingAway)
}

func (s *Session) currentState() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// authDeadlineExpired fires once if no successful authentication happened
// within the deadline. Closing is idempotent, so a race with an in-flight
// authenticate cannot double-close: whichever side transitions the state
// first wins.
func (s *Session) authDeadlineExpired() {
	if s.currentState() != stateAwaitingAuth {
		return
	}
	log.Printf("session %s: authentication deadline expired", s.info.ID)
	s.closeWithError("Missing authentication", CloseAuthFailed)
}

// readPump reads frames from the connection and dispatches them in
// arrival order. When it returns, whether due to a client disconnect, a
// network failure or a server-initiated close, it runs the session
// cleanup exactly once.
func (s *Session) readPump() {
	defer func() {
		s.cleanup()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("session %s: read error: %v", s.info.ID, err)
			}
			return
		}

		switch s.currentState() {
		case stateAwaitingAuth:
			s.handleAuthPhaseMessage(message)
		case stateAuthenticated:
			s.handleAuthenticatedMessage(message)
		case stateClosed:
			// Drain until the close handshake finishes.
		}
	}
}

// writePump serializes all writes to the connection: queued frames,
// keepalive pings, and the final close handshake.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-s.done:
			// Flush anything queued before the close, then hand the peer
			// the close code.
			for {
				select {
				case frame := <-s.send:
					s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
						return
					}
				default:
					s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					s.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(s.closeCode, ""))
					return
				}
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// queueFrame enqueues an outbound frame. Best effort: a slow consumer
// whose buffer is full loses the frame rather than blocking the sender.
func (s *Session) queueFrame(frame []byte) {
	select {
	case s.send <- frame:
	default:
		log.Printf("session %s: send buffer full, dropping frame", s.info.ID)
	}
}

// close transitions to Closed and triggers the close handshake. Safe to
// call from any goroutine, any number of times.
func (s *Session) close(code int) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = stateClosed
		s.mu.Unlock()

		if s.authTimer != nil {
			s.authTimer.Stop()
		}

		s.closeCode = code
		close(s.done)
	})
}

// closeWithError reports an error frame to the client, then closes the
// connection with the same code.
func (s *Session) closeWithError(description string, code int) {
	s.queueFrame(errorFrame(description, code))
	s.close(code)
}

// handleAuthPhaseMessage processes the one message type allowed before
// authentication. Every protocol violation here terminates the
// connection.
func (s *Session) handleAuthPhaseMessage(raw []byte) {
	ctx, span := middleware.StartSpan(s.ctx, "WS.Authenticate",
		attribute.String("session.id", s.info.ID),
		attribute.Int("slideshow.id", int(s.scope.SlideshowID)),
	)
	defer span.End()

	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.closeWithError("Invalid message payload", CloseMalformedPayload)
		return
	}

	if msg.Type != msgTypeAuthenticate {
		s.closeWithError("Missing authentication", CloseInvalidFirstMessage)
		return
	}

	if msg.Token == "" {
		s.closeWithError("Missing token", CloseMissingToken)
		return
	}

	principal, err := s.svc.verifier.Verify(ctx, msg.Token)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		s.closeWithError("Authentication failed", CloseAuthFailed)
		return
	}

	// The credential is valid; the deadline no longer applies.
	s.authTimer.Stop()

	if err := s.svc.access.CheckAccess(ctx, principal, s.scope); err != nil {
		// Denied access reads exactly like a bad credential on the wire,
		// so a probe cannot learn whether the branch or slideshow exists.
		middleware.AddSpanError(ctx, err)
		s.closeWithError("Authentication failed", CloseAuthFailed)
		return
	}

	snapshot, err := s.svc.store.Load(ctx, s.scope)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		// Valid credentials but the slideshow cannot be served: a
		// retryable application error, not a security event. The
		// connection stays open awaiting another authenticate.
		if errors.Is(err, repository.ErrSlideshowNotFound) {
			s.queueFrame(errorFrame("Slideshow not found", CloseMissingToken))
		} else {
			s.queueFrame(errorFrame("Failed to load slideshow", CloseInternalError))
		}
		return
	}

	if !s.tryAuthenticate(principal) {
		// Deadline fired while we were loading; the close already won.
		return
	}

	s.queueFrame(authenticatedFrame())
	s.queueFrame(dataFrame(snapshot))

	if err := s.svc.registry.Add(ctx, s.scope.SlideshowID, models.PresenceEntryFor(principal)); err != nil {
		log.Printf("session %s: presence add failed: %v", s.info.ID, err)
		middleware.AddSpanError(ctx, err)
		s.queueFrame(errorFrame("Presence unavailable", ClosePresenceFailure))
	} else {
		s.mu.Lock()
		s.present = true
		s.mu.Unlock()
	}

	if err := s.svc.hub.Join(ctx, s.scope.SlideshowID, s); err != nil {
		log.Printf("session %s: room join failed: %v", s.info.ID, err)
		middleware.AddSpanError(ctx, err)
		s.closeWithError("Realtime channel unavailable", ClosePresenceFailure)
		return
	}

	s.mu.Lock()
	s.joined = true
	s.mu.Unlock()

	s.broadcastPresence(ctx)
}

// tryAuthenticate transitions AwaitingAuth→Authenticated. Returns false
// when the session was closed in the meantime (deadline or disconnect), in
// which case no side effects may happen.
func (s *Session) tryAuthenticate(principal *models.Principal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateAwaitingAuth {
		return false
	}
	s.state = stateAuthenticated
	s.principal = principal
	return true
}

// handleAuthenticatedMessage processes messages after authentication.
// Failures here are connection-local: the offending request is rejected
// with an error frame and the connection stays open.
func (s *Session) handleAuthenticatedMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.queueFrame(errorFrame("Invalid message payload", CloseMalformedPayload))
		return
	}

	switch msg.Type {
	case msgTypeUpdate:
		s.handleUpdate(msg)
	case msgTypeMessage:
		// Legacy chat relay: forwarded to the room verbatim.
		if msg.Message != "" {
			if err := s.svc.hub.Broadcast(s.ctx, s.scope.SlideshowID, messageFrame(msg.Message)); err != nil {
				log.Printf("session %s: chat broadcast failed: %v", s.info.ID, err)
			}
		}
	default:
		// Unknown types are ignored.
	}
}

func (s *Session) handleUpdate(msg inboundMessage) {
	ctx, span := middleware.StartSpan(s.ctx, "WS.Update",
		attribute.String("session.id", s.info.ID),
		attribute.Int("slideshow.id", int(s.scope.SlideshowID)),
	)
	defer span.End()

	var data map[string]any
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			data = nil
		}
	}
	if len(data) == 0 {
		s.queueFrame(errorFrame("Update data is required", CloseMalformedPayload))
		return
	}

	snapshot, err := s.svc.store.ApplyPatch(ctx, s.scope, data)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		var validationErr *repository.ValidationError
		switch {
		case errors.Is(err, repository.ErrSlideshowNotFound):
			s.queueFrame(errorFrame("Slideshow not found", CloseMissingToken))
		case errors.As(err, &validationErr):
			// Rejected payloads are distinguishable from generic failures.
			s.queueFrame(errorFrame(validationErr.Error(), CloseMalformedPayload))
		default:
			s.queueFrame(errorFrame("Failed to update slideshow", CloseInternalError))
		}
		return
	}

	// Ack the sender first, then fan the new snapshot out to the whole
	// room. The sender receives the snapshot too, via its own room
	// membership.
	s.queueFrame(messageFrame("Slideshow updated"))

	if err := s.svc.hub.Broadcast(ctx, s.scope.SlideshowID, dataFrame(snapshot)); err != nil {
		log.Printf("session %s: snapshot broadcast failed: %v", s.info.ID, err)
	}
}

// broadcastPresence pushes the current presence list to the whole room. A
// registry failure is reported to this session with the presence failure
// code rather than silently broadcasting an empty list.
func (s *Session) broadcastPresence(ctx context.Context) {
	entries, err := s.svc.registry.List(ctx, s.scope.SlideshowID)
	if err != nil {
		log.Printf("session %s: presence list failed: %v", s.info.ID, err)
		s.queueFrame(errorFrame("Presence unavailable", ClosePresenceFailure))
		return
	}

	if err := s.svc.hub.Broadcast(ctx, s.scope.SlideshowID, presenceFrame(entries)); err != nil {
		log.Printf("session %s: presence broadcast failed: %v", s.info.ID, err)
	}
}

// cleanup releases everything the session holds: its presence entry, its
// room membership, and a presence broadcast to whoever remains. It runs
// exactly once, on every exit path, including abnormal disconnects.
func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.mu.Lock()
		principal := s.principal
		present := s.present
		joined := s.joined
		s.state = stateClosed
		s.mu.Unlock()

		if s.authTimer != nil {
			s.authTimer.Stop()
		}

		// Presence registration and room membership are released
		// independently: an entry registered before a failed room join must
		// still come out of the registry.
		if principal != nil && (present || joined) {
			// The session context is about to be cancelled; cleanup I/O
			// gets its own deadline.
			ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()

			if present {
				if err := s.svc.registry.Remove(ctx, s.scope.SlideshowID, principal.ID); err != nil {
					log.Printf("session %s: presence remove failed: %v", s.info.ID, err)
				}
			}
			if joined {
				s.svc.hub.Leave(s.scope.SlideshowID, s)
				s.broadcastPresence(ctx)
			}
		}

		s.cancel()
	})
}
