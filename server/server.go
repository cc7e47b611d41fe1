// Package server exposes the gotmt Service over HTTP: a JSON API, a
// server-sent event stream and a small index page.
package server

import (
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ZaguanLabs/gotmt"
)

// DefaultPollInterval is how often the event stream checks for new events.
const DefaultPollInterval = time.Second

// ExportFilename is the download name of the JSON export.
const ExportFilename = "translations_export.json"

// Server routes HTTP requests to a gotmt.Service.
type Server struct {
	svc          *gotmt.Service
	events       gotmt.EventReader
	logger       *slog.Logger
	pollInterval time.Duration
	index        *template.Template

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvents sets the log the /stream endpoint reads from. Without it the
// stream endpoint responds 503.
func WithEvents(events gotmt.EventReader) Option {
	return func(s *Server) {
		s.events = events
	}
}

// WithPollInterval sets how often the event stream polls for new events.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New creates a Server for svc.
func New(svc *gotmt.Service, opts ...Option) *Server {
	s := &Server{
		svc:          svc,
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		index:        indexTemplate,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register adds every route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/languages", s.handleLanguageList)
	mux.HandleFunc("POST /api/languages", s.handleLanguageCreate)

	mux.HandleFunc("GET /api/translations", s.handleTranslationList)
	mux.HandleFunc("POST /api/translations", s.handleTranslationCreate)
	mux.HandleFunc("POST /api/translations/regenerate", s.handleRegenerateAll)
	mux.HandleFunc("GET /api/translations/{id}", s.handleTranslationGet)
	mux.HandleFunc("PUT /api/translations/{id}", s.handleTranslationUpdate)
	mux.HandleFunc("DELETE /api/translations/{id}", s.handleTranslationDelete)
	mux.HandleFunc("POST /api/translations/{id}/regenerate", s.handleTranslationRegenerate)

	mux.HandleFunc("GET /api/export/json", s.handleExport)
}

// Handler returns the routes wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return chain(mux,
		s.recoverer,
		s.requestID,
		s.accessLog,
		cors,
	)
}

// Close ends every open event stream. Other requests are unaffected, so it
// can be registered with http.Server.RegisterOnShutdown.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
