package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"evade.gg/keyserver/internal/config"
	"evade.gg/keyserver/internal/ratelimit"
	"evade.gg/keyserver/storage"
)

type Server struct {
	Router  *chi.Mux
	Storage storage.Storage
	Config  *config.Config
	Version string
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHttpServer(cfg *config.Config, db storage.Storage) *Server {
	s := &Server{
		Storage: db,
		Config:  cfg,
		Version: "dev",
	}

	var limiter ratelimit.RateLimit
	if cfg.ValidateRateLimit > 0 {
		limiter = ratelimit.New(cfg.ValidateRateLimit, time.Minute)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "x-admin-token"},
	}))

	r.Get("/health", s.Health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(limiter, clientAddr))
			r.Post("/validate", s.ValidateKey)
		})

		r.Get("/script/lua", s.LuaScript)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/auth", s.AdminAuth)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/stats", s.Stats)
				r.Get("/keys", s.ListKeys)
				r.Post("/keys", s.CreateKey)
				r.Delete("/keys/{id}", s.DeleteKey)
				r.Get("/blacklist", s.ListBlacklist)
				r.Post("/blacklist", s.AddToBlacklist)
				r.Delete("/blacklist/{id}", s.RemoveFromBlacklist)
			})
		})
	})

	s.Router = r
	return s
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.Version,
		Timestamp: time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// clientAddr extracts the caller's address, trusting X-Forwarded-For when a
// proxy set it.
func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
