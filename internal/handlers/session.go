package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hemalab/hemassist/internal/services/session"
	"github.com/hemalab/hemassist/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// HandleSessionStart bootstraps a chat session: it creates the remote
// conversation thread and hands the client a signed session cookie.
func HandleSessionStart(sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	threadID, err := sessionService.CreateSession(r.Context(), w)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create chat session")
		httpext.JsonError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{"thread_id": threadID}); err != nil {
		log.Error().Err(err).Msg("Failed to encode session response")
	}
}
