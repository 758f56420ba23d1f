package collaboration

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"openstream/internal/broker"
	"openstream/internal/models"
)

func newBareSession(slideshowID uint) *Session {
	scope := models.DocumentScope{SlideshowID: slideshowID, BranchID: testBranch}
	return &Session{
		info:  models.NewSessionInfo(scope),
		scope: scope,
		send:  make(chan []byte, 8),
	}
}

func receiveFrame(t *testing.T, s *Session) []byte {
	t.Helper()
	select {
	case frame := <-s.send:
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func TestHubBroadcastReachesRoomMembers(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(broker.NewMemoryBroker())

	a := newBareSession(1)
	b := newBareSession(1)
	other := newBareSession(2)

	assert.Equal(t, hub.Join(ctx, 1, a), nil)
	assert.Equal(t, hub.Join(ctx, 1, b), nil)
	assert.Equal(t, hub.Join(ctx, 2, other), nil)

	assert.Equal(t, hub.Broadcast(ctx, 1, []byte(`{"x":1}`)), nil)

	assert.Equal(t, string(receiveFrame(t, a)), `{"x":1}`)
	assert.Equal(t, string(receiveFrame(t, b)), `{"x":1}`)

	// The other slideshow's room is untouched.
	select {
	case frame := <-other.send:
		t.Fatalf("unexpected frame on other room: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(broker.NewMemoryBroker())

	a := newBareSession(1)
	b := newBareSession(1)
	assert.Equal(t, hub.Join(ctx, 1, a), nil)
	assert.Equal(t, hub.Join(ctx, 1, b), nil)

	hub.Leave(1, b)

	assert.Equal(t, hub.Broadcast(ctx, 1, []byte("frame")), nil)
	assert.Equal(t, string(receiveFrame(t, a)), "frame")

	select {
	case frame := <-b.send:
		t.Fatalf("unexpected frame after leave: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

// Two hubs on one broker model two worker processes: a broadcast issued
// through either must reach sessions homed on both.
func TestHubBroadcastCrossesInstances(t *testing.T) {
	ctx := context.Background()
	shared := broker.NewMemoryBroker()
	hub1 := NewHub(shared)
	hub2 := NewHub(shared)

	local := newBareSession(1)
	remote := newBareSession(1)
	assert.Equal(t, hub1.Join(ctx, 1, local), nil)
	assert.Equal(t, hub2.Join(ctx, 1, remote), nil)

	assert.Equal(t, hub1.Broadcast(ctx, 1, []byte("everywhere")), nil)

	assert.Equal(t, string(receiveFrame(t, local)), "everywhere")
	assert.Equal(t, string(receiveFrame(t, remote)), "everywhere")
}
