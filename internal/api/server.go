// Package api exposes the service over HTTP: bearer-token auth, the
// onboarding flow endpoints and the supporting app features.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quitflow/internal/chat"
	"quitflow/internal/common/config"
	"quitflow/internal/common/logger"
	"quitflow/internal/common/metrics"
	"quitflow/internal/community"
	"quitflow/internal/docstore"
	"quitflow/internal/habits"
	"quitflow/internal/identity"
	"quitflow/internal/onboarding"
	"quitflow/internal/prefs"
)

// answerDocVersion tags finalized per-question documents so later migrations
// can tell document generations apart.
const answerDocVersion = 1

// Dependencies carries the wired services the handlers delegate to. Optional
// collaborators may be nil; their endpoints respond 503.
type Dependencies struct {
	Store       docstore.Store
	Verifier    *identity.Verifier
	Habits      *habits.Service
	Leaderboard *community.Leaderboard
	Posts       *community.PostIndex
	Chat        *chat.Client
	Prefs       *prefs.Store
}

type Server struct {
	cfg    *config.Config
	deps   Dependencies
	router chi.Router
	log    logger.Logger

	mu       sync.Mutex
	sessions map[string]*onboarding.Controller
}

func NewServer(cfg *config.Config, deps Dependencies, log logger.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		log:      log.WithFields(map[string]interface{}{"component": "api"}),
		sessions: make(map[string]*onboarding.Controller),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observeRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/onboarding", func(r chi.Router) {
			r.Post("/start", s.handleOnboardingStart)
			r.Post("/answer", s.handleOnboardingAnswer)
			r.Post("/next", s.handleOnboardingNext)
			r.Post("/jump", s.handleOnboardingJump)
			r.Post("/finalize", s.handleOnboardingFinalize)
		})

		r.Post("/checkins", s.handleCheckInRecord)
		r.Get("/checkins", s.handleCheckInHistory)
		r.Get("/streaks", s.handleStreaks)
		r.Get("/savings", s.handleSavings)

		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/posts", s.handlePostCreate)
		r.Get("/posts/search", s.handlePostSearch)

		r.Post("/chat", s.handleChat)

		r.Get("/prefs/{name}", s.handlePrefGet)
		r.Put("/prefs/{name}", s.handlePrefSet)
		r.Delete("/prefs/{name}", s.handlePrefDelete)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// sessionFor returns the caller's onboarding controller, creating it on first
// use. Controllers are per user; the loader and answer store are shared and
// resolve the user from the request context.
func (s *Server) sessionFor(userID string) *onboarding.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.sessions[userID]; ok {
		return c
	}

	ob := s.cfg.Onboarding
	loader := onboarding.NewLoader(s.deps.Store, ob.LocalPath, ob.RemotePath, s.log)
	store := onboarding.NewAnswerStore(s.deps.Store, identity.ContextProvider{}, answerDocVersion, s.log)
	c := onboarding.NewController(loader, store, onboarding.ControllerOptions{
		StartID:  ob.StartQuestion,
		MaxHops:  ob.MaxResumeHops,
		Autosave: ob.Autosave,
	}, s.log)

	s.sessions[userID] = c
	return c
}

// dropSession discards a finished or failed controller so the next start
// rebuilds it from persisted state.
func (s *Server) dropSession(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// authenticate verifies the Bearer token and places the user on the context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, s.log, unauthorizedErr("missing bearer token"))
			return
		}

		user, err := s.deps.Verifier.Verify(token)
		if err != nil {
			writeError(w, s.log, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
	})
}

// observeRequests records the request duration histogram keyed by the chi
// route pattern, not the raw path, to keep cardinality bounded.
func (s *Server) observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}
