package web

import (
	"context"
	"crypto/rand"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"

	"github.com/triage-desk/triage/internal/config"
	"github.com/triage-desk/triage/internal/export"
	"github.com/triage-desk/triage/internal/ticket"
	"github.com/triage-desk/triage/internal/triage"
)

//go:embed templates/*.html
var templatesFS embed.FS

const rateWindow = time.Minute

// Server is the local web UI over the parse pipeline. The pipeline itself
// holds no per-request state; everything shown on a page comes from the
// one parse that produced it.
type Server struct {
	cfg         *config.Config
	parser      *triage.Parser
	exporter    *export.Engine
	templates   *template.Template
	httpServer  *http.Server
	csrfKey     []byte
	rateLimiter *RateLimiter
	log         zerolog.Logger
}

// NewServer builds the web UI server.
func NewServer(cfg *config.Config, parser *triage.Parser, exporter *export.Engine, log zerolog.Logger) (*Server, error) {
	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}

	funcs := template.FuncMap{
		"percent": func(confidence float64) string {
			return fmt.Sprintf("%.0f%%", confidence*100)
		},
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		cfg:         cfg,
		parser:      parser,
		exporter:    exporter,
		templates:   tmpl,
		csrfKey:     csrfKey,
		rateLimiter: NewRateLimiter(cfg.Web.RateLimit, rateWindow),
		log:         log,
	}, nil
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.cfg.Web.Port),
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info().Int("port", s.cfg.Web.Port).Msg("starting triage web UI")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(s.requestLogger)
	r.Use(securityHeaders)

	// Localhost-only UI, CSRF over plain HTTP.
	csrfMiddleware := csrf.Protect(
		s.csrfKey,
		csrf.Secure(false),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins([]string{
			"localhost", "127.0.0.1",
			fmt.Sprintf("localhost:%d", s.cfg.Web.Port),
			fmt.Sprintf("127.0.0.1:%d", s.cfg.Web.Port),
		}),
	)
	r.Use(csrfMiddleware)

	r.Get("/", s.handleIndex)
	r.Post("/parse", s.handleParse)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
		next.ServeHTTP(w, r)
	})
}

// pageData is everything the index page can show. Record and the exports
// are only set after a successful parse; there is no server-side ticket
// state between requests.
type pageData struct {
	CSRFField template.HTML
	Error     string
	Record    *ticket.Record
	JSON      string
	Report    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{CSRFField: csrf.TemplateField(r)})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	data := pageData{CSRFField: csrf.TemplateField(r)}

	if !s.rateLimiter.Allow(clientKey(r)) {
		w.WriteHeader(http.StatusTooManyRequests)
		data.Error = "Too many requests - please wait a moment and try again."
		s.render(w, data)
		return
	}

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		data.Error = "Could not read the submitted form."
		s.render(w, data)
		return
	}

	rec, err := s.parser.Parse(r.PostFormValue("email"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		data.Error = triage.SanitizeError(err)
		s.render(w, data)
		return
	}

	jsonOut, err := export.JSON(*rec)
	if err != nil {
		s.renderError(w, data, err)
		return
	}
	report, err := s.exporter.Report(*rec)
	if err != nil {
		s.renderError(w, data, err)
		return
	}

	data.Record = rec
	data.JSON = string(jsonOut)
	data.Report = report
	s.render(w, data)
}

func (s *Server) renderError(w http.ResponseWriter, data pageData, err error) {
	s.log.Error().Err(err).Msg("export failed")
	w.WriteHeader(http.StatusInternalServerError)
	data.Error = triage.SanitizeError(err)
	s.render(w, data)
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Error().Err(err).Msg("template render failed")
	}
}

// clientKey identifies a client for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
