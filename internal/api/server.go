package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/jobtrail/internal/applications"
	"github.com/dgallion1/jobtrail/internal/assistant"
	"github.com/dgallion1/jobtrail/internal/config"
	"github.com/dgallion1/jobtrail/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Applications is the application service the handlers call.
type Applications interface {
	Create(ctx context.Context, in applications.CreateInput) (*applications.Application, error)
	Get(ctx context.Context, userID, id string) (*applications.Application, error)
	List(ctx context.Context, userID string, filter applications.ListFilter) ([]applications.Application, error)
	Update(ctx context.Context, userID, id string, p applications.Patch) (*applications.Application, error)
	SetStatus(ctx context.Context, userID, id string, status applications.Status, note string) (*applications.Application, error)
	Delete(ctx context.Context, userID, id string) error
	Events(ctx context.Context, userID, id string, limit int) ([]applications.Event, error)
}

// Assistant is the AI proxy.
type Assistant interface {
	Chat(ctx context.Context, history []assistant.Message) (string, error)
	ExtractPosting(ctx context.Context, text string) (*assistant.Posting, error)
	ExtractProfile(ctx context.Context, text string) (*assistant.Profile, error)
	Model() string
	StatsSnapshot() assistant.StatsSnapshot
}

// ProfileFetcher downloads a public profile page.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, profileURL string) ([]byte, error)
}

// Deps are the server's collaborators. Assistant and Profiles are nil when
// not configured; their endpoints answer 503.
type Deps struct {
	Applications Applications
	Imports      *pipeline.Orchestrator
	Assistant    Assistant
	Profiles     ProfileFetcher
}

// Server is the HTTP API server for jobtrail.
type Server struct {
	router  chi.Router
	deps    Deps
	log     *slog.Logger
	cfg     config.Config
	started time.Time
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps:    deps,
		log:     log,
		cfg:     cfg,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/sitemap.xml", s.handleSitemap)
	r.Get("/robots.txt", s.handleRobots)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/format", s.handleFormat)

		r.Route("/api/applications", func(r chi.Router) {
			r.Get("/", s.handleListApplications)
			r.Post("/", s.handleCreateApplication)
			r.Get("/{id}", s.handleGetApplication)
			r.Patch("/{id}", s.handleUpdateApplication)
			r.Delete("/{id}", s.handleDeleteApplication)
			r.Put("/{id}/status", s.handleSetStatus)
			r.Get("/{id}/events", s.handleListEvents)
		})

		r.Post("/api/imports", s.handleImport)
		r.Get("/api/imports/{jobID}/status", s.handleImportStatus)

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(s.cfg.AssistantRatePerMinute))
			r.Post("/api/assistant/chat", s.handleChat)
			r.Post("/api/assistant/extract-posting", s.handleExtractPosting)
			r.Post("/api/profile/extract", s.handleExtractProfile)
		})

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"assistant": s.deps.Assistant != nil,
		"profiles":  s.deps.Profiles != nil,
	}
	if s.deps.Imports != nil {
		body["queue_depth"] = s.deps.Imports.QueueDepth()
	}
	writeJSON(w, http.StatusOK, body)
}
