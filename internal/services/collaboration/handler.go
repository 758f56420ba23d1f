package collaboration

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	"openstream/internal/middleware"
	"openstream/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: validate against the configured frontend origins
		return true
	},
}

// Handler upgrades HTTP requests on the slideshow endpoint into
// collaboration sessions.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// HandleSlideshowConnection accepts a connection on
// /ws/slideshows/{id}?branch={branch}. The slideshow id and branch id are
// fixed here for the life of the connection; authentication happens
// in-band afterwards.
func (h *Handler) HandleSlideshowConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	// The route constrains {id} to digits.
	slideshowID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		http.Error(w, "invalid slideshow id", http.StatusBadRequest)
		return
	}

	// A missing or malformed branch parses as zero and is rejected by the
	// access check during authentication.
	branchID, _ := strconv.ParseUint(r.URL.Query().Get("branch"), 10, 32)

	scope := models.DocumentScope{
		SlideshowID: uint(slideshowID),
		BranchID:    uint(branchID),
	}

	ctx, span := middleware.StartSpan(ctx, "WS.Connect",
		attribute.Int("slideshow.id", int(scope.SlideshowID)),
		attribute.Int("branch.id", int(scope.BranchID)),
	)
	defer span.End()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade WebSocket: %v", err)
		middleware.AddSpanError(ctx, err)
		return
	}

	session := newSession(h.svc, scope, conn)
	session.Start()

	log.Printf("session %s connected to slideshow %d (branch %d)",
		session.info.ID, scope.SlideshowID, scope.BranchID)
}
