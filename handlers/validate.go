package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"evade.gg/keyserver/internal/logger"
)

type ValidateRequest struct {
	Key  string `json:"key"`
	HWID string `json:"hwid"`
}

type ValidateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ValidateKey is the decision procedure the script calls. The checks run in
// a fixed order and the first failure decides the message: banned hwid,
// unknown key, revoked, expired, uses exhausted. Only an acceptance has side
// effects (use-count increment, then an audit row); rejections write nothing.
func (s *Server) ValidateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		respondWithValidation(w, http.StatusBadRequest, false, "Bad request")
		return
	}

	ip := clientAddr(r)
	if ip == "" {
		ip = "unknown"
	}
	userAgent := r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "unknown"
	}

	if req.HWID != "" {
		banned, err := s.Storage.FindBlacklistByHWID(ctx, req.HWID)
		if err != nil {
			s.validationStorageError(w, "blacklist lookup failed", err)
			return
		}
		if banned != nil {
			reason := "No reason provided"
			if banned.Reason != nil && *banned.Reason != "" {
				reason = *banned.Reason
			}
			logger.Warn("Banned hwid attempted validation", map[string]interface{}{
				"hwid": req.HWID,
				"ip":   ip,
			})
			respondWithValidation(w, http.StatusForbidden, false, fmt.Sprintf("You are banned. Reason: %s", reason))
			return
		}
	}

	key, err := s.Storage.FindKeyByCode(ctx, req.Key)
	if err != nil {
		s.validationStorageError(w, "key lookup failed", err)
		return
	}
	if key == nil {
		respondWithValidation(w, http.StatusOK, false, "Invalid key")
		return
	}

	if key.IsRevoked {
		respondWithValidation(w, http.StatusOK, false, "Key is revoked")
		return
	}

	if key.Expired(time.Now()) {
		respondWithValidation(w, http.StatusOK, false, "Key expired")
		return
	}

	if key.UsesExhausted() {
		respondWithValidation(w, http.StatusOK, false, "Max uses reached")
		return
	}

	if err := s.Storage.IncrementKeyUses(ctx, key.ID); err != nil {
		s.validationStorageError(w, "failed to increment key uses", err)
		return
	}
	if _, err := s.Storage.LogValidation(ctx, key.ID, req.HWID, ip, userAgent); err != nil {
		s.validationStorageError(w, "failed to log validation", err)
		return
	}

	logger.Info("Key validated", map[string]interface{}{
		"key_id": key.ID,
		"hwid":   req.HWID,
		"ip":     ip,
	})
	respondWithValidation(w, http.StatusOK, true, "Key validated successfully")
}

// The public endpoint never leaks internals; callers only ever see the fixed
// "Bad request" string.
func (s *Server) validationStorageError(w http.ResponseWriter, message string, err error) {
	logger.Error(message, map[string]interface{}{
		"error": err.Error(),
	})
	respondWithValidation(w, http.StatusInternalServerError, false, "Bad request")
}

func respondWithValidation(w http.ResponseWriter, status int, valid bool, message string) {
	writeJSON(w, status, ValidateResponse{
		Valid:   valid,
		Message: message,
	})
}
