package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	agentmetrics "kycgate/internal/agent/metrics"
	"kycgate/internal/agent/model"
	"kycgate/internal/agent/worker"
	"kycgate/internal/events"
	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/llm/gemini"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/httpserver"
	"kycgate/internal/platform/kafka"
	"kycgate/internal/platform/logger"
	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/platform/postgres"
	"kycgate/internal/platform/redis"
	"kycgate/internal/screening"
	"kycgate/internal/screening/handler"
	screeningmetrics "kycgate/internal/screening/metrics"
	"kycgate/internal/screening/ports"
	"kycgate/internal/tools/documents"
	"kycgate/internal/tools/profile"
	"kycgate/internal/tools/sanctions"
	"kycgate/internal/tools/search"
	"kycgate/internal/tools/wealth"
	"kycgate/pkg/platform/circuit"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	agentMetrics := agentmetrics.New(reg)
	screeningMetrics := screeningmetrics.New(reg)
	httpMetrics := metrics.New(reg)

	gen, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.Model.APIKey,
		BaseURL: cfg.Model.BaseURL,
		Model:   cfg.Model.Model,
	})
	if err != nil {
		return err
	}
	if !gen.Configured() {
		log.Warn("GEMINI_API_KEY not set, model-backed workers will return review fallbacks")
	}
	caller := model.NewCaller(gen,
		model.WithMaxAttempts(cfg.Model.MaxAttempts),
		model.WithBackoffUnit(cfg.Model.BackoffUnit),
		model.WithLogger(log),
		model.WithMetrics(agentMetrics),
	)

	profiles, closeProfiles, err := openProfiles(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeProfiles()

	screener, err := newScreener(cfg, log)
	if err != nil {
		return err
	}

	docs, closeDocs := newDocumentAnalyzer(ctx, cfg, log)
	defer closeDocs()
	searcher := search.New(gen, cfg.Model.Model)

	roster, err := worker.LoadRoster(cfg.Screening.RosterFile)
	if err != nil {
		return err
	}
	workers, err := roster.Build(worker.Toolbox{
		Documents:    docs,
		Employment:   searcher,
		Media:        searcher,
		Screener:     screener,
		Wealth:       wealth.NewCalculator(),
		Jurisdiction: cfg.Screening.Jurisdiction,
	}, caller,
		worker.WithTimeout(cfg.Screening.WorkerTimeout),
		worker.WithLogger(log),
		worker.WithMetrics(agentMetrics),
	)
	if err != nil {
		return err
	}
	agents := make([]ports.Agent, 0, len(workers))
	for _, w := range workers {
		agents = append(agents, w)
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	opts := []screening.Option{
		screening.WithCaseIDs(screening.NewCaseIDs(cfg.Screening.CaseIDPrefix)),
		screening.WithRunTimeout(cfg.Screening.RunTimeout),
		screening.WithProfileWriteBack(cfg.Screening.ProfileWriteBack),
		screening.WithPublisher(publisher),
		screening.WithLogger(log),
		screening.WithMetrics(screeningMetrics),
	}
	if profiles != nil {
		opts = append(opts, screening.WithProfiles(profiles))
	}
	if cfg.Screening.PreScreen {
		opts = append(opts, screening.WithPreScreen(screener, cfg.Screening.Jurisdiction))
	}
	coordinator := screening.New(agents, opts...)

	var validator middleware.JWTValidator
	if cfg.Server.AuthSigningKey != "" {
		validator = jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(
			cfg.Server.AuthSigningKey, cfg.Server.AuthIssuer, cfg.Server.AuthAudience,
		))
	} else {
		log.Warn("AUTH_SIGNING_KEY not set, analysis endpoints are unauthenticated")
	}

	router := newRouter(routerDeps{
		logger:      log,
		httpMetrics: httpMetrics,
		gatherer:    reg,
		corsOrigins: cfg.Server.CORSAllowedOrigins,
		validator:   validator,
		analyze:     handler.New(coordinator, log, screeningMetrics),
		status:      handler.NewStatusHandler(coordinator, version),
	})
	srv := httpserver.New(cfg.Server.Addr, router, cfg.Screening.RunTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting kycgate", "addr", cfg.Server.Addr, "version", version, "workers", len(agents))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// openProfiles binds the profile datastore, cached in Redis when configured.
// A nil store means no profile lookup capability.
func openProfiles(ctx context.Context, cfg config.Config, log *slog.Logger) (ports.ProfileStore, func(), error) {
	noop := func() {}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, noop, err
	}
	if db == nil {
		log.Warn("DATABASE_URL not set, existing-profile lookup disabled")
		return nil, noop, nil
	}
	pg := profile.NewPostgresStore(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, noop, err
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, noop, err
	}
	if rc == nil {
		return pg, func() { _ = db.Close() }, nil
	}
	closeAll := func() {
		_ = rc.Close()
		_ = db.Close()
	}
	return profile.NewCachedStore(pg, rc.Client, cfg.Redis.ProfileTTL, log), closeAll, nil
}

// newScreener prefers the remote screening API and fails over to the static
// watchlist while it is unavailable.
func newScreener(cfg config.Config, log *slog.Logger) (ports.Screener, error) {
	wl, err := sanctions.LoadWatchlist(cfg.Sanctions.WatchlistFile)
	if err != nil {
		return nil, err
	}
	static := sanctions.NewStaticScreener(wl)
	if cfg.Sanctions.URL == "" {
		return static, nil
	}
	remote := sanctions.NewHTTPScreener(cfg.Sanctions.URL, cfg.Sanctions.APIKey, cfg.Sanctions.Timeout)
	return sanctions.NewFailoverScreener(remote, static, circuit.New("sanctions"), log), nil
}

// newDocumentAnalyzer registers a fetcher per locator scheme. Object store
// fetchers that cannot be built leave their scheme unsupported.
func newDocumentAnalyzer(ctx context.Context, cfg config.Config, log *slog.Logger) (*documents.Analyzer, func()) {
	closeFn := func() {}
	opts := []documents.Option{
		documents.WithFetcher(documents.NewHTTPFetcher(cfg.Documents.FetchTimeout), "http", "https"),
	}
	if gcs, err := documents.NewGCSFetcher(ctx, cfg.Documents.GCSCredentialsFile); err != nil {
		log.Warn("gs:// documents unavailable", "error", err)
	} else {
		opts = append(opts, documents.WithFetcher(gcs, "gs"))
		closeFn = func() { _ = gcs.Close() }
	}
	if s3f, err := documents.NewS3Fetcher(ctx, cfg.Documents.S3Region, cfg.Documents.S3Endpoint); err != nil {
		log.Warn("s3:// documents unavailable", "error", err)
	} else {
		opts = append(opts, documents.WithFetcher(s3f, "s3"))
	}
	return documents.NewAnalyzer(opts...), closeFn
}

// newPublisher publishes to Kafka when brokers are configured and logs
// events otherwise.
func newPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (ports.Publisher, func(), error) {
	client, err := kafka.NewClient(kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		return nil, func() {}, err
	}
	if client == nil {
		return events.NewLogPublisher(log), func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.DecisionTopic, 0, 0); err != nil {
		log.Warn("decision topic not ensured", "topic", cfg.Kafka.DecisionTopic, "error", err)
	}
	return events.NewKafkaPublisher(client, cfg.Kafka.DecisionTopic), client.Close, nil
}
