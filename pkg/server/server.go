// Package server exposes the HTTP surface: the guarded ask endpoint,
// process metadata endpoints, and the static home page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmarinova/cvgate/pkg/ask"
	"github.com/dmarinova/cvgate/pkg/audit"
	"github.com/dmarinova/cvgate/pkg/cache"
	"github.com/dmarinova/cvgate/pkg/config"
	"github.com/dmarinova/cvgate/pkg/models"
)

// Asker answers one question from one client identity. Ready reports a
// configuration problem (missing credential or document) without
// touching request input.
type Asker interface {
	Ready() error
	Ask(ctx context.Context, identity, question string) (ask.Answer, error)
}

// Server routes API and web requests.
type Server struct {
	cfg     *config.Config
	asker   Asker
	answers *cache.AnswerCache
	auditor *audit.Logger
	mux     *http.ServeMux
	home    *template.Template
	started time.Time
}

// New creates a Server wired with all dependencies. auditor and answers
// may be nil.
func New(cfg *config.Config, asker Asker, answers *cache.AnswerCache, auditor *audit.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		asker:   asker,
		answers: answers,
		auditor: auditor,
		mux:     http.NewServeMux(),
		started: time.Now(),
	}

	if tmpl, err := template.ParseFiles(filepath.Join(cfg.Web.TemplatesDir, "home.html")); err == nil {
		s.home = tmpl
	} else {
		log.Printf("home template not loaded: %v", err)
	}

	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/ready", s.handleReady)
	s.mux.HandleFunc("/api/version", s.handleVersion)
	s.mux.HandleFunc("/api/uptime", s.handleUptime)
	s.mux.HandleFunc("/api/cache-stats", s.handleCacheStats)
	s.mux.HandleFunc("/api/ask-cv", s.handleAsk)
	s.mux.HandleFunc("/home", s.handleHome)
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Web.StaticDir))))

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("cvgate listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"git_sha":     env("GIT_SHA", "unknown"),
		"build_time":  env("BUILD_TIME", "unknown"),
		"environment": env("APP_ENV", "local"),
		"service":     env("SERVICE_NAME", "cvgate"),
	})
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"uptime": formatUptime(time.Since(s.started)),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.answers == nil {
		writeJSON(w, http.StatusOK, models.CacheStats{})
		return
	}
	writeJSON(w, http.StatusOK, s.answers.Stats())
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if s.home == nil {
		http.Error(w, "home page not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.home.Execute(w, nil); err != nil {
		log.Printf("render home: %v", err)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := clientIdentity(r)
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	start := time.Now()

	// A misconfigured service answers 500 before the body is read, so
	// even a malformed body cannot turn the outcome into a 400.
	if err := s.asker.Ready(); err != nil {
		status, body := askResult(ask.Answer{}, err)
		writeJSON(w, status, body)
		s.logAsk(requestID, identity, "", ask.Answer{}, status, time.Since(start))
		return
	}

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.asker.Ask(r.Context(), identity, req.Question)
	status, body := askResult(answer, err)

	var cooldown *ask.CooldownError
	if errors.As(err, &cooldown) {
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.RetryAfterSeconds))
	}

	writeJSON(w, status, body)
	s.logAsk(requestID, identity, req.Question, answer, status, time.Since(start))
}

// askResult maps a pipeline outcome to an HTTP status and response body.
func askResult(answer ask.Answer, err error) (int, any) {
	if err == nil {
		return http.StatusOK, models.AskResponse{Answer: answer.Text, Cached: answer.Cached}
	}

	var tooLong *ask.QuestionTooLongError
	var cooldown *ask.CooldownError
	var upstream *ask.UpstreamError

	switch {
	case errors.Is(err, ask.ErrMissingCredential), errors.Is(err, ask.ErrMissingDocument):
		return http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, ask.ErrQuestionEmpty):
		return http.StatusBadRequest, models.ErrorResponse{Error: "Please enter a question."}
	case errors.As(err, &tooLong):
		return http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("Keep questions under %d characters.", tooLong.Max),
		}
	case errors.As(err, &cooldown):
		return http.StatusTooManyRequests, models.ErrorResponse{
			Error:             "Too many requests. Try again shortly.",
			RetryAfterSeconds: cooldown.RetryAfterSeconds,
		}
	case errors.Is(err, ask.ErrDailyLimit):
		return http.StatusTooManyRequests, models.ErrorResponse{
			Error: "Daily limit reached. Try again tomorrow.",
		}
	case errors.As(err, &upstream):
		return http.StatusBadGateway, models.ErrorResponse{
			Error: "The completion service failed to answer. Try again later.",
		}
	default:
		return http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"}
	}
}

func (s *Server) logAsk(requestID, identity, question string, answer ask.Answer, status int, latency time.Duration) {
	if s.auditor == nil {
		return
	}
	hash, prefix := audit.HashIdentity(identity)
	rec := models.AskRecord{
		RequestID:      requestID,
		IdentityHash:   hash,
		IdentityPrefix: prefix,
		Question:       question,
		Answer:         answer.Text,
		Cached:         answer.Cached,
		StatusCode:     status,
		LatencyMs:      latency.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
	go func() {
		if err := s.auditor.Log(context.Background(), rec); err != nil {
			log.Printf("audit log error: %v", err)
		}
	}()
}

// clientIdentity derives the rate-limit and cache partition key from the
// peer address. It is not authenticated and trivially spoofable; that is
// an accepted limitation of this service.
func clientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}

func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

func env(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, models.ErrorResponse{Error: message})
}
