package api

import (
	"net/http"

	"openstream/internal/middleware"
	"openstream/internal/services/collaboration"

	"github.com/gorilla/mux"
)

func SetupRoutes(wsHandler *collaboration.Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Collaboration endpoint: one channel per slideshow, branch scope as a
	// query parameter.
	r.HandleFunc("/ws/slideshows/{id:[0-9]+}", wsHandler.HandleSlideshowConnection)

	return r
}
