package handlers

import (
	"encoding/json"
	"net/http"

	"evade.gg/keyserver/internal/logger"
)

type AuthRequest struct {
	Token string `json:"token"`
}

// requireAdmin gates every management operation on the shared secret. An
// unset token rejects everything rather than opening the admin surface.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("x-admin-token")
		if s.Config.AdminToken == "" || token != s.Config.AdminToken {
			writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized: Invalid Admin Token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminAuth only validates the login form; no session is issued. The admin
// UI replays the same token on every subsequent request.
func (s *Server) AdminAuth(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if s.Config.AdminToken == "" || req.Token != s.Config.AdminToken {
		writeErrorResponse(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Storage.GetStats(r.Context())
	if err != nil {
		logger.Error("Failed to compute stats", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
