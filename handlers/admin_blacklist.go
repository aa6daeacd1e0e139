package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"evade.gg/keyserver/internal/logger"
	"evade.gg/keyserver/models"
	"evade.gg/keyserver/storage"
)

type BanRequest struct {
	HWID   *string `json:"hwid"`
	IP     *string `json:"ip"`
	Reason *string `json:"reason"`
}

func (s *Server) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Storage.ListBlacklist(r.Context())
	if err != nil {
		logger.Error("Failed to list blacklist", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if entries == nil {
		entries = []*models.BlacklistEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hasHWID := req.HWID != nil && *req.HWID != ""
	hasIP := req.IP != nil && *req.IP != ""
	if !hasHWID && !hasIP {
		writeErrorResponse(w, http.StatusBadRequest, "hwid or ip required")
		return
	}

	entry := models.BlacklistEntry{
		HWID:   req.HWID,
		IP:     req.IP,
		Reason: req.Reason,
	}

	created, err := s.Storage.AddToBlacklist(r.Context(), &entry)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateHWID) {
			writeErrorResponse(w, http.StatusBadRequest, "Failed to ban user. Probably already banned.")
			return
		}
		logger.Error("Failed to add blacklist entry", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("Blacklist entry added", map[string]interface{}{
		"ban_id": created.ID,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid id")
		return
	}

	if err := s.Storage.RemoveFromBlacklist(r.Context(), id); err != nil {
		logger.Error("Failed to remove blacklist entry", map[string]interface{}{
			"error":  err.Error(),
			"ban_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
