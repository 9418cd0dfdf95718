package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/john/modwatch/internal/moderator"
)

// Server provides HTTP health check and moderation stats endpoints
type Server struct {
	server *http.Server
}

// New creates a new health check server exposing /health and /stats
func New(addr string, stats *moderator.Stats) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats.Snapshot()); err != nil {
			log.Printf("Error encoding stats: %v", err)
		}
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Printf("Health check server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down health check server...")
	return s.server.Shutdown(ctx)
}
