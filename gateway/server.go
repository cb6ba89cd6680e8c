package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"curvelaunch/core/events"
	"curvelaunch/gateway/middleware"
	"curvelaunch/native/curve"
	"curvelaunch/native/token"
	"curvelaunch/observability"
)

// Options wires the gateway's collaborators.
type Options struct {
	Engine   *curve.Engine
	Ledger   *token.Ledger
	Recorder *events.Recorder
	Logger   *slog.Logger

	RateLimit   middleware.RateLimit
	AdminSecret string
}

// Server exposes the curve engine over HTTP. Mutating engine operations are
// serialised here; the engine's busy flag then only trips on genuine
// reentrancy from within an operation.
type Server struct {
	engine   *curve.Engine
	ledger   *token.Ledger
	recorder *events.Recorder
	log      *slog.Logger
	metrics  *observability.CurveMetrics

	mu     sync.Mutex
	router chi.Router
}

// New constructs a gateway server and mounts its routes.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		engine:   opts.Engine,
		ledger:   opts.Ledger,
		recorder: opts.Recorder,
		log:      log,
		metrics:  observability.Metrics(),
	}

	limiter := middleware.NewRateLimiter(opts.RateLimit)
	admin := middleware.NewAdminAuthenticator(middleware.AdminAuthConfig{
		HMACSecret: opts.AdminSecret,
		ClockSkew:  30 * time.Second,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(limiter.Middleware)
	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1/curve", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/price", s.getPrice)
		r.Post("/quote/buy", s.quoteBuy)
		r.Post("/quote/sell", s.quoteSell)
		r.Post("/buy", s.executeBuy)
		r.Post("/sell", s.executeSell)
		r.Get("/events", s.listEvents)
	})
	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(admin.Middleware)
		r.Post("/params", s.updateParams)
	})
	s.router = r
	return s
}

// Handler returns the mounted route tree.
func (s *Server) Handler() http.Handler { return s.router }

// Serve runs the HTTP listener until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
