package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/attempt"
	"github.com/gokatarajesh/dmv-trainer/internal/auth"
	"github.com/gokatarajesh/dmv-trainer/internal/config"
	"github.com/gokatarajesh/dmv-trainer/internal/logging"
	"github.com/gokatarajesh/dmv-trainer/internal/progress"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// Handlers groups the feature handlers mounted by the API server. Nil
// members leave their routes unmounted.
type Handlers struct {
	Auth     *auth.HTTPHandlers
	Attempt  *attempt.HTTPHandlers
	Progress *progress.HTTPHandler
	// Validator checks bearer tokens for learner routes.
	Validator auth.TokenValidator
}

// Deps are the infrastructure pieces the server reports on.
type Deps struct {
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Gatherer prometheus.Gatherer
}

// NewHTTPServer wires base routes (health, metrics, ping) and the learner API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Deps, handlers Handlers) *http.Server {
	var pingers []Pinger
	if deps.Pool != nil {
		pingers = append(pingers, deps.Pool)
	}
	if deps.Redis != nil {
		pingers = append(pingers, redisPinger{deps.Redis})
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: NewRouter(cfg, logger, deps.Gatherer, pingers, handlers),
	}
}

// NewRouter builds the route table.
func NewRouter(cfg *config.App, logger zerolog.Logger, gatherer prometheus.Gatherer, pingers []Pinger, handlers Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pingers); err != nil {
			logging.FromContext(r.Context()).Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	learner := func(h http.HandlerFunc) http.Handler {
		return auth.RequireLearner(h)
	}

	if handlers.Auth != nil {
		mux.HandleFunc("POST /v1/learners", handlers.Auth.CreateLearner)
		mux.HandleFunc("POST /v1/learners/refresh", handlers.Auth.RefreshToken)
		mux.Handle("GET /v1/learners/me", learner(handlers.Auth.GetMe))
	}

	if handlers.Attempt != nil {
		mux.HandleFunc("GET /v1/categories", handlers.Attempt.Categories)
		mux.Handle("POST /v1/attempts", learner(handlers.Attempt.Start))
		mux.Handle("GET /v1/attempts/current", learner(handlers.Attempt.Current))
		mux.Handle("DELETE /v1/attempts/current", learner(handlers.Attempt.Discard))
		mux.Handle("POST /v1/attempts/current/answers", learner(handlers.Attempt.Answer))
		mux.Handle("POST /v1/attempts/current/next", learner(handlers.Attempt.Next))
		mux.Handle("GET /v1/attempts/current/report", learner(handlers.Attempt.Report))
	}

	if handlers.Progress != nil {
		mux.Handle("GET /v1/progress", learner(handlers.Progress.HandleGet))
	}

	var handler http.Handler = mux
	if handlers.Validator != nil {
		handler = auth.AuthMiddleware(handlers.Validator, logger)(handler)
	}
	handler = corsMiddleware(cfg.CORS)(handler)
	return logging.Middleware(logger)(handler)
}

func pingDependencies(ctx context.Context, pingers []Pinger) error {
	for _, p := range pingers {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
