// Package serve runs a router for a description with stub handlers, so
// clients can be exercised against the routing and binding contract before
// real handlers exist.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/broady/tyrest"
	"github.com/broady/tyrest/cmd/tyrest/internal/load"
	"github.com/broady/tyrest/middleware"
	"github.com/broady/tyrest/tyrestgen/ir"
)

type Cmd struct {
	load.Input `embed:""`

	Port    int    `help:"Port to listen on." default:"8080" short:"p"`
	APIPath string `help:"Path the API is mounted under." default:"/" name:"api-path"`
	CORS    bool   `help:"Answer CORS preflight requests for the declared verbs."`
	Metrics bool   `help:"Expose Prometheus metrics on /metrics."`
	Verbose bool   `help:"Log at debug level." short:"v"`
}

func (c *Cmd) Run() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, err := c.handler(ctx, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", c.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("tyrest serve listening", slog.String("addr", "http://"+srv.Addr+c.APIPath))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handler builds the served handler. Collectors are registered with reg.
func (c *Cmd) handler(ctx context.Context, logger *slog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	api, err := c.Compile(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range api.Diagnostics {
		logger.Warn("compile diagnostic", slog.String("code", d.Code), slog.String("location", d.Location), slog.String("message", d.Message))
	}

	router, err := tyrest.NewRouter(api, Stubs(api))
	if err != nil {
		return nil, err
	}
	router.
		WithAPIPath(c.APIPath).
		WithLogger(logger).
		WithInterceptor(middleware.LoggingInterceptor(logger)).
		WithInterceptor(middleware.NewMetrics(reg).Interceptor()).
		WithMiddleware(middleware.RequestID)

	routes, err := router.Routes()
	if err != nil {
		return nil, err
	}
	logger.Debug("routing table built", slog.Int("routes", len(routes)))

	var h http.Handler = router
	if c.Metrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.Handle("/", router)
		h = mux
	}
	if c.CORS {
		cfg := middleware.DefaultCORSConfig()
		cfg.AllowMethods = middleware.RouteMethods(routes)
		h = middleware.CORS(cfg)(h)
	}
	return h, nil
}

// Stubs returns a handler for every endpoint of api. Each stub answers with
// the endpoint's first declared status and no payload. An endpoint without
// declared statuses gets no stub, so the router answers 501.
func Stubs(api *ir.API) tyrest.Handlers {
	handlers := make(tyrest.Handlers, len(api.Endpoints))
	for i := range api.Endpoints {
		e := &api.Endpoints[i]
		if len(e.Responses) == 0 {
			continue
		}
		status := e.Responses[0].Status
		handlers[e.Handler] = func(ctx context.Context, req *tyrest.Request) (*tyrest.Response, error) {
			return tyrest.Respond(status, nil), nil
		}
	}
	return handlers
}
