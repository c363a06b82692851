package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/qbank/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a read-only preview of one output directory.
type Server struct {
	router chi.Router
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(cfg config.Config, log *slog.Logger) *Server {
	s := &Server{
		log: log,
		cfg: cfg,
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

	r.Get("/health", s.handleHealth)

	r.Get("/api/questions", s.handleQuestions)
	r.Get("/api/check", s.handleCheck)
	r.Get("/api/report", s.handleReport)

	r.Get("/", s.handleIndex)
	files := http.FileServer(http.Dir(s.cfg.OutputDir))
	r.Handle("/images/*", files)
	r.Handle("/*", files)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleIndex serves the rendered HTML document when there is one, otherwise
// the directory listing.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := filepath.Join(s.cfg.OutputDir, "questions.html")
	if _, err := os.Stat(page); err == nil {
		http.ServeFile(w, r, page)
		return
	}
	http.FileServer(http.Dir(s.cfg.OutputDir)).ServeHTTP(w, r)
}
