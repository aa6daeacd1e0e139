package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"evade.gg/keyserver/internal/keygen"
	"evade.gg/keyserver/internal/logger"
	"evade.gg/keyserver/models"
	"evade.gg/keyserver/storage"
)

type CreateKeyRequest struct {
	Key       string     `json:"key"`
	Note      *string    `json:"note"`
	MaxUses   *int       `json:"maxUses"`
	ExpiresAt *time.Time `json:"expiresAt"`
	IsRevoked bool       `json:"isRevoked"`
	// DurationDays, when positive, wins over ExpiresAt: the key expires
	// durationDays days from now.
	DurationDays int `json:"durationDays"`
}

func (s *Server) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.Storage.ListKeys(r.Context())
	if err != nil {
		logger.Error("Failed to list keys", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if keys == nil {
		keys = []*models.Key{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key := models.Key{
		Key:       req.Key,
		Note:      req.Note,
		MaxUses:   1,
		ExpiresAt: req.ExpiresAt,
		IsRevoked: req.IsRevoked,
	}
	if req.MaxUses != nil {
		key.MaxUses = *req.MaxUses
	}
	if req.DurationDays > 0 {
		expiresAt := time.Now().UTC().AddDate(0, 0, req.DurationDays)
		key.ExpiresAt = &expiresAt
	}
	if key.Key == "" {
		key.Key = keygen.ShortCode()
	}

	created, err := s.Storage.CreateKey(r.Context(), &key)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeErrorResponse(w, http.StatusBadRequest, "Failed to create key. Key might already exist.")
			return
		}
		logger.Error("Failed to create key", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("Key created", map[string]interface{}{
		"key_id":   created.ID,
		"max_uses": created.MaxUses,
	})
	writeJSON(w, http.StatusCreated, created)
}

// DeleteKey always answers 204; deleting an unknown id is a silent no-op.
// The key's validation history stays behind.
func (s *Server) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid id")
		return
	}

	if err := s.Storage.DeleteKey(r.Context(), id); err != nil {
		logger.Error("Failed to delete key", map[string]interface{}{
			"error":  err.Error(),
			"key_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
