package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"creative-ai-studio/internal/infra/logging"
	red "creative-ai-studio/internal/infra/redis"
	"creative-ai-studio/internal/infra/worker"
	"creative-ai-studio/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type sessionCtxKey struct{}

// SessionUserID extracts the authenticated user from a request context.
func SessionUserID(ctx context.Context) string {
	if v, ok := ctx.Value(sessionCtxKey{}).(string); ok {
		return v
	}
	return ""
}

type Server struct {
	genUC        usecase.GenerationUseCase
	accountUC    usecase.AccountUseCase
	entitlements usecase.EntitlementUseCase
	auth         *AuthManager
	limiter      *red.RateLimiter
	pool         *worker.Pool

	rateLimit  int
	rateWindow time.Duration

	inflight sync.Map // userID -> struct{}
	log      *zerolog.Logger
}

func NewServer(
	genUC usecase.GenerationUseCase,
	accountUC usecase.AccountUseCase,
	entitlements usecase.EntitlementUseCase,
	auth *AuthManager,
	limiter *red.RateLimiter,
	pool *worker.Pool,
	rateLimit int,
	rateWindow time.Duration,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		genUC:        genUC,
		accountUC:    accountUC,
		entitlements: entitlements,
		auth:         auth,
		limiter:      limiter,
		pool:         pool,
		rateLimit:    rateLimit,
		rateWindow:   rateWindow,
		log:          logger,
	}
}

// Routes assembles the public API. Generation submissions stream; the
// request timeout is therefore applied per group, not globally.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.With(Timeout(10 * time.Second)).Post("/session", s.handleSession)

		api.Group(func(pr chi.Router) {
			pr.Use(s.requireSession)
			// Submission streams until the job settles; its deadline is the
			// poll budget, not an HTTP timeout.
			pr.Post("/generations", s.handleGenerate)

			pr.With(Timeout(10 * time.Second)).Get("/generations", s.handleHistory)
			pr.With(Timeout(10 * time.Second)).Get("/account", s.handleAccount)
			pr.With(Timeout(10 * time.Second)).Get("/resolutions", s.handleResolutions)
		})
	})
	return r
}

// requireSession authenticates the request and stamps the user onto the
// context for handlers and log lines downstream.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, claims.Subject)
		ctx = logging.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
