package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rubiojr/fulltext/pkg/iiif"
	"github.com/rubiojr/fulltext/pkg/log"
	"github.com/rubiojr/fulltext/pkg/search"
	"github.com/rubiojr/fulltext/pkg/storage"
)

// StatsProvider reports per dataset storage statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) (map[string]*storage.Stats, error)
}

type Server struct {
	service *search.Service
	stats   StatsProvider
	mapper  *iiif.Mapper
	timeout time.Duration
	logger  *log.Logger
}

// NewServer creates the API server. A zero timeout leaves requests bounded
// only by the client.
func NewServer(service *search.Service, stats StatsProvider, mapper *iiif.Mapper, timeout time.Duration) *Server {
	return &Server{
		service: service,
		stats:   stats,
		mapper:  mapper,
		timeout: timeout,
		logger:  log.ForService("api"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	s.writeJSONAs(w, status, "application/json", data)
}

func (s *Server) writeJSONAs(w http.ResponseWriter, status int, contentType string, data interface{}) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
