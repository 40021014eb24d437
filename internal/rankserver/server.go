package rankserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/revoirb612/pedamint-hcoding/internal/model"
)

const (
	// DefaultLimit is the number of entries a list request returns.
	DefaultLimit    = 10
	maxUsernameLen  = 32
	maxRequestBytes = 4 << 10
)

var (
	errMissingProgramKey = errors.New("program_key is required")
	errMissingUsername   = errors.New("username is required")
	errUsernameTooLong   = errors.New("username is too long")
	errNegativeScore     = errors.New("score must not be negative")
)

// Config configures the HTTP surface.
type Config struct {
	SubmitPath     string
	ListPath       string
	AllowedOrigins []string
	Limit          int
}

// Server handles ranking submissions and top lists.
type Server struct {
	cfg   Config
	repo  Repository
	clock clockwork.Clock
	log   zerolog.Logger
	newID func() string
}

// New returns a Server. A nil clock uses the real clock.
func New(cfg Config, repo Repository, clock clockwork.Clock, log zerolog.Logger) *Server {
	if cfg.SubmitPath == "" {
		cfg.SubmitPath = "/api/ranking"
	}
	if cfg.ListPath == "" {
		cfg.ListPath = "/api/ranking"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{cfg: cfg, repo: repo, clock: clock, log: log, newID: func() string { return uuid.NewString() }}
}

type submission struct {
	ProgramKey string `json:"program_key"`
	Score      int    `json:"score"`
	Username   string `json:"username"`
}

func (s submission) validate() error {
	switch {
	case strings.TrimSpace(s.ProgramKey) == "":
		return errMissingProgramKey
	case strings.TrimSpace(s.Username) == "":
		return errMissingUsername
	case utf8.RuneCountInString(strings.TrimSpace(s.Username)) > maxUsernameLen:
		return errUsernameTooLong
	case s.Score < 0:
		return errNegativeScore
	}
	return nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post(s.cfg.SubmitPath, s.submit())
	r.Get(strings.TrimRight(s.cfg.ListPath, "/")+"/{programKey}", s.top())
	r.Get("/healthz", healthz)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *Server) submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submission
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		score := Score{
			ID:         s.newID(),
			ProgramKey: strings.TrimSpace(req.ProgramKey),
			Username:   strings.TrimSpace(req.Username),
			Score:      req.Score,
			CreatedAt:  s.clock.Now().UTC(),
		}
		if err := s.repo.Insert(r.Context(), score); err != nil {
			s.log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("failed to store score")
			writeError(w, http.StatusInternalServerError, "failed to store score")
			return
		}
		writeJSON(w, http.StatusCreated, toEntry(score))
	}
}

func (s *Server) top() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(chi.URLParam(r, "programKey"))
		if key == "" {
			writeError(w, http.StatusBadRequest, errMissingProgramKey.Error())
			return
		}
		scores, err := s.repo.Top(r.Context(), key, s.cfg.Limit)
		if err != nil {
			s.log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("failed to load ranking")
			writeError(w, http.StatusInternalServerError, "failed to load ranking")
			return
		}
		entries := make([]model.RemoteEntry, 0, len(scores))
		for _, sc := range scores {
			entries = append(entries, toEntry(sc))
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.clock.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", s.clock.Since(start)).
			Msg("request")
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func toEntry(s Score) model.RemoteEntry {
	return model.RemoteEntry{
		Username:  s.Username,
		Score:     s.Score,
		Timestamp: s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}
