package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hemalab/hemassist/internal/services"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes binds all HTTP endpoints to the service layer.
func RegisterRoutes(router *mux.Router, svcs *services.Services) {
	router.HandleFunc("/healthz", HandleHealth).Methods("GET")

	router.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		HandleSessionStart(svcs.GetSessionService(), w, r)
	}).Methods("POST")

	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		HandleChat(svcs.GetSessionService(), svcs.GetUploadService(), svcs.GetOCRService(), svcs.GetDriver(), w, r)
	})
}

// HandleHealth reports liveness and the number of active chat connections.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"status":      "ok",
		"connections": manager.Count(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
	}
}
