package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/newtube/newtube/internal/auth"
	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/docs"
	"github.com/newtube/newtube/internal/httputil"
	"github.com/newtube/newtube/internal/ratelimit"
	"github.com/newtube/newtube/internal/video"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB                database.DBTX
	Pinger            Pinger
	BaseURL           string
	JWTSecret         string
	AuthWebhookSecret string
	MuxWebhookSecret  string
	Storage           video.ObjectStorage
	Mux               video.MuxClient
	Generator         video.MetadataGenerator
	CommentCounter    video.CommentCounter
	Countries         video.CountryResolver
	EnableDocs        bool
}

type Server struct {
	router       chi.Router
	pinger       Pinger
	authHandler  *auth.Handler
	syncHandler  *auth.SyncHandler
	videoHandler *video.Handler
	limiters     []*ratelimit.Limiter
	enableDocs   bool
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))

	s := &Server{router: r, pinger: cfg.Pinger, enableDocs: cfg.EnableDocs}

	if cfg.DB != nil {
		s.authHandler = auth.NewHandler(cfg.DB, cfg.JWTSecret)
		s.syncHandler = auth.NewSyncHandler(cfg.DB, cfg.AuthWebhookSecret)

		s.videoHandler = video.NewHandler(cfg.DB, cfg.Storage, cfg.Mux, cfg.MuxWebhookSecret)
		if cfg.Generator != nil {
			s.videoHandler.SetGenerator(cfg.Generator)
		}
		s.videoHandler.SetCommentCounter(cfg.CommentCounter)
		s.videoHandler.SetCountryResolver(cfg.Countries)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartCleanup evicts idle rate limiter entries until ctx is cancelled.
func (s *Server) StartCleanup(ctx context.Context) {
	for _, l := range s.limiters {
		l.StartCleanup(ctx)
	}
}

// Drain waits for background video jobs to finish.
func (s *Server) Drain(ctx context.Context) error {
	if s.videoHandler == nil {
		return nil
	}
	return s.videoHandler.Wait(ctx)
}

func (s *Server) newLimiter(rps float64, burst int) *ratelimit.Limiter {
	l := ratelimit.NewLimiter(rps, burst)
	s.limiters = append(s.limiters, l)
	return l
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.enableDocs {
		docs.Mount(s.router)
	}

	if s.videoHandler == nil {
		return
	}

	webhookLimiter := s.newLimiter(20, 100)
	s.router.With(webhookLimiter.Middleware).Post("/api/videos/webhook", s.videoHandler.Webhook)
	s.router.With(webhookLimiter.Middleware).Post("/api/users/webhook", s.syncHandler.Webhook)

	readLimiter := s.newLimiter(10, 40)
	s.router.Group(func(r chi.Router) {
		r.Use(readLimiter.Middleware)
		r.Use(s.authHandler.OptionalMiddleware)
		r.Get("/api/categories", s.videoHandler.ListCategories)
		r.Get("/api/videos/{id}", s.videoHandler.GetOne)
		r.Get("/api/videos/{id}/comments", s.videoHandler.ListComments)
		r.Get("/api/videos/{id}/suggestions", s.videoHandler.Suggestions)
	})

	writeLimiter := s.newLimiter(2, 10)
	s.router.Group(func(r chi.Router) {
		r.Use(writeLimiter.Middleware)
		r.Use(s.authHandler.Middleware)

		r.Post("/api/videos", s.videoHandler.Create)
		r.Patch("/api/videos/{id}", s.videoHandler.Update)
		r.Delete("/api/videos/{id}", s.videoHandler.Remove)
		r.Post("/api/videos/{id}/restore-thumbnail", s.videoHandler.RestoreThumbnail)
		r.Post("/api/videos/{id}/generate-title", s.videoHandler.GenerateTitle)
		r.Post("/api/videos/{id}/generate-description", s.videoHandler.GenerateDescription)
		r.Post("/api/videos/{id}/generate-thumbnail", s.videoHandler.GenerateThumbnail)
		r.Post("/api/videos/{id}/views", s.videoHandler.RecordView)
		r.Post("/api/videos/{id}/reactions/{type}", s.videoHandler.ReactToVideo)
		r.Post("/api/videos/{id}/comments", s.videoHandler.CreateComment)

		r.Delete("/api/comments/{id}", s.videoHandler.RemoveComment)
		r.Post("/api/comments/{id}/{type}", s.videoHandler.ReactToComment)

		r.Get("/api/studio/videos", s.videoHandler.StudioList)
		r.Get("/api/studio/videos/{id}", s.videoHandler.StudioGetOne)
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Error: "database unreachable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
