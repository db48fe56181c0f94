package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/go-sod/knn/internal/buildinfo"
	"github.com/go-sod/knn/internal/classify"
	"github.com/go-sod/knn/internal/config"
	"github.com/go-sod/knn/internal/httputil"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/metrics"
	"github.com/go-sod/knn/internal/server"
	"github.com/go-sod/knn/internal/setup"
	"github.com/go-sod/knn/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(os.Stdout, "%s: %s\n", buildinfo.Info.Name(), buildinfo.Info.String())

	ctx, done := shutdown.New()
	defer done()

	logger := logging.NewLoggerFromEnv()
	ctx = logging.WithLogger(ctx, logger)
	if err := run(ctx); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	cfg := config.Config{}
	env, err := setup.Setup(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(context.Background()); err != nil {
			logger.Errorf("env.Close: %v", err)
		}
	}()

	m := env.Dispatcher()
	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("dispatcher.Run: %w", err)
	}

	if err := metrics.Register(); err != nil {
		return fmt.Errorf("metrics.Register: %w", err)
	}
	exporter, err := metrics.NewExporter(cfg.MetricsNamespace)
	if err != nil {
		return fmt.Errorf("metrics.NewExporter: %w", err)
	}

	classifyHandler, err := classify.NewClassifyHandler(cfg.ClassifyConfig(), m)
	if err != nil {
		return fmt.Errorf("classify.NewClassifyHandler: %w", err)
	}
	searchHandler, err := classify.NewSearchHandler(cfg.ClassifyConfig(), m)
	if err != nil {
		return fmt.Errorf("classify.NewSearchHandler: %w", err)
	}
	importHandler, err := classify.NewImportHandler(cfg.ClassifyConfig(), m)
	if err != nil {
		return fmt.Errorf("classify.NewImportHandler: %w", err)
	}

	limiter := httputil.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	mux := http.NewServeMux()
	mux.Handle("/classify", httputil.RateLimit(limiter, classifyHandler))
	mux.Handle("/search", httputil.RateLimit(limiter, searchHandler))
	mux.Handle("/observations", httputil.RateLimit(limiter, importHandler))
	mux.Handle("/metrics", exporter)
	mux.Handle("/health", server.HandleHealth(ctx, func() (int, error) {
		return m.Len(), nil
	}))

	srv, err := server.New(cfg.SrvAddr, cfg.MaxConns)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	grpcSrv, err := server.New(cfg.GRPCAddr, 0)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	grpcHealth, health := server.NewHealthServer()
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	logger.Infof("serving http on %s, grpc health on %s, dataset size %d", srv.Addr(), grpcSrv.Addr(), m.Len())

	errGrp, grpCtx := errgroup.WithContext(ctx)
	errGrp.Go(func() error {
		return srv.ServeHTTPHandler(grpCtx, mux)
	})
	errGrp.Go(func() error {
		return grpcSrv.ServeGRPC(grpCtx, grpcHealth)
	})
	errGrp.Go(func() error {
		<-grpCtx.Done()
		health.Shutdown()
		return nil
	})

	return errGrp.Wait()
}
