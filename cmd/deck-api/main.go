// deck-api — HTTP API над Deck Runtime.
//
// Загружает manifest (файл, встроенный api2pdf deck или Postgres), создаёт
// источник ответов по DECK_MODE и обслуживает UI-клиентов: список шагов,
// запуск шагов, текущее состояние и websocket-поток переходов.
//
// Если задан RABBITMQ_URL, переходы состояния публикуются в exchange deck.state.
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
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Deck/decks"
	"github.com/shaiso/Deck/internal/api"
	"github.com/shaiso/Deck/internal/config"
	"github.com/shaiso/Deck/internal/deck"
	"github.com/shaiso/Deck/internal/domain"
	"github.com/shaiso/Deck/internal/engine"
	"github.com/shaiso/Deck/internal/mq"
	"github.com/shaiso/Deck/internal/repo"
	"github.com/shaiso/Deck/internal/source"
	"github.com/shaiso/Deck/internal/telemetry"
)

// envPrefix — переменные окружения, доступные в URL-шаблонах как .Env.
const envPrefix = "DECK_ENV_"

var startTime = time.Now()

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting deck-api", "mode", cfg.Deck.Mode, "manifest_source", cfg.Deck.ManifestSource)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("deck-api failed", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	mode, err := cfg.SourceMode()
	if err != nil {
		return err
	}

	// Подключаемся к базе данных, если она настроена
	var pool *pgxpool.Pool
	var store *repo.DeckRepo
	if cfg.DatabaseURL != "" {
		pool, err = repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		store = repo.NewDeckRepo(pool)
		logger.Info("connected to database")
	}

	manifest, fixtures, err := loadDeck(ctx, cfg, store)
	if err != nil {
		return err
	}

	registry, err := engine.NewRegistry(manifest)
	if err != nil {
		return err
	}
	logger.Info("deck loaded", "deck", registry.Name(), "steps", registry.Count(), "fixtures", len(fixtures))

	src, err := source.New(mode, source.Options{
		Fixtures:    fixtures,
		MockLatency: cfg.Deck.MockLatency,
		HTTPTimeout: cfg.Deck.HTTPTimeout,
		Env:         engine.NewContext(nil).WithOSEnv(envPrefix).Env,
	})
	if err != nil {
		return err
	}

	metrics := telemetry.DefaultMetrics()

	rt := deck.New(deck.Config{
		Registry: registry,
		Source:   src,
		Logger:   logger,
		Metrics:  metrics,
	})

	// Публикация переходов в RabbitMQ
	var conn *mq.Connection
	if cfg.RabbitMQURL != "" {
		conn, err = mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			return err
		}
		logger.Debug("rabbitmq topology", "topology", mq.TopologyInfo())

		bridge := mq.NewStateBridge(mq.NewPublisher(conn, logger, registry.Name()), logger, 0)
		unsubscribe := bridge.Attach(rt)
		defer unsubscribe()

		go bridge.Run(ctx)
	}

	apiCfg := api.Config{
		Deck:    rt,
		Catalog: registry,
		Logger:  logger,
		Metrics: metrics,
	}
	if store != nil {
		apiCfg.Store = store
	}
	handler := api.NewHandler(apiCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if conn != nil && !conn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "rabbitmq disconnected")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.Deck.APIAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Deck.APIAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Дожидаемся запущенных шагов
	done := make(chan struct{})
	go func() {
		rt.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("steps still running at shutdown")
	}

	return nil
}

// loadDeck загружает manifest и fixtures из источника, указанного в конфигурации.
func loadDeck(ctx context.Context, cfg *config.Config, store *repo.DeckRepo) (*domain.Manifest, domain.Fixtures, error) {
	switch cfg.Deck.ManifestSource {
	case config.ManifestSourcePostgres:
		dv, err := store.GetLatest(ctx, cfg.Deck.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("load deck %q: %w", cfg.Deck.Name, err)
		}
		return &dv.Manifest, dv.Fixtures, nil
	}

	if cfg.Deck.Manifest == "" {
		return decks.API2PDF()
	}

	m, err := engine.LoadManifest(cfg.Deck.Manifest)
	if err != nil {
		return nil, nil, err
	}

	fixtures := domain.Fixtures{}
	if cfg.Deck.Fixtures != "" {
		fixtures, err = engine.LoadFixtures(cfg.Deck.Fixtures)
		if err != nil {
			return nil, nil, err
		}
	}

	return m, fixtures, nil
}
