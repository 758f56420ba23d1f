package collaboration

import (
	"context"
	"fmt"
	"log"
	"sync"

	"openstream/internal/broker"
)

// Hub is the fan-out side of the collaboration channel. It keeps one room
// per slideshow holding the locally connected sessions, and bridges every
// room over the broker so sessions on other worker processes receive the
// same broadcasts.
//
// Broadcast never delivers directly: frames are published to the broker,
// and each hub delivers the frames arriving on its own subscription to its
// local room members. That keeps single-process and multi-process
// deployments on one delivery path.
type Hub struct {
	broker broker.Broker

	mu    sync.RWMutex
	rooms map[uint]*room
}

type room struct {
	sessions map[*Session]bool
	sub      broker.Subscription
}

// NewHub creates a hub on the given broker.
func NewHub(b broker.Broker) *Hub {
	return &Hub{
		broker: b,
		rooms:  make(map[uint]*room),
	}
}

func channelName(slideshowID uint) string {
	return fmt.Sprintf("slideshow.%d", slideshowID)
}

// Join adds an authenticated session to the slideshow's room, opening the
// broker subscription when the room is new.
func (h *Hub) Join(ctx context.Context, slideshowID uint, s *Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm := h.rooms[slideshowID]
	if rm == nil {
		sub, err := h.broker.Subscribe(ctx, channelName(slideshowID))
		if err != nil {
			return fmt.Errorf("failed to join slideshow %d: %w", slideshowID, err)
		}
		rm = &room{
			sessions: make(map[*Session]bool),
			sub:      sub,
		}
		h.rooms[slideshowID] = rm
		go h.pump(rm)
	}

	rm.sessions[s] = true
	log.Printf("session %s joined slideshow %d (local sessions: %d)",
		s.info.ID, slideshowID, len(rm.sessions))
	return nil
}

// Leave removes a session from its room, closing the subscription when the
// last local session is gone.
func (h *Hub) Leave(slideshowID uint, s *Session) {
	h.mu.Lock()
	rm := h.rooms[slideshowID]
	var sub broker.Subscription
	if rm != nil {
		delete(rm.sessions, s)
		log.Printf("session %s left slideshow %d (local sessions: %d)",
			s.info.ID, slideshowID, len(rm.sessions))
		if len(rm.sessions) == 0 {
			sub = rm.sub
			delete(h.rooms, slideshowID)
		}
	}
	h.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Broadcast publishes a frame to every session authenticated on the
// slideshow, across all worker processes.
func (h *Hub) Broadcast(ctx context.Context, slideshowID uint, frame []byte) error {
	return h.broker.Publish(ctx, channelName(slideshowID), frame)
}

// pump delivers frames from the room's subscription to its local
// sessions. Delivery is best effort per session: a full send buffer drops
// the frame for that session only.
func (h *Hub) pump(rm *room) {
	for frame := range rm.sub.Messages() {
		h.mu.RLock()
		sessions := make([]*Session, 0, len(rm.sessions))
		for s := range rm.sessions {
			sessions = append(sessions, s)
		}
		h.mu.RUnlock()

		for _, s := range sessions {
			s.queueFrame(frame)
		}
	}
}

// Shutdown closes every connected session. Room teardown happens through
// each session's own cleanup path.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	sessions := []*Session{}
	for _, rm := range h.rooms {
		for s := range rm.sessions {
			sessions = append(sessions, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
