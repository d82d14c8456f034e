package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "DipWatch/internal/domain/repository"
	icache "DipWatch/internal/service/cache"
	"DipWatch/internal/usecase"
	pkgch "DipWatch/pkg/clickhouse"
	"DipWatch/pkg/config"
	xhttp "DipWatch/pkg/http"
	pkgkafka "DipWatch/pkg/kafka"
	applogger "DipWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.TickCollector
	broadcaster *usecase.SignalBroadcaster
	consumer    *pkgkafka.Consumer
	ticks       *usecase.KafkaTicksHandler
	publisher   drepo.SignalPublisher
	chClient    *pkgch.Client
	cache       *icache.TTLCache
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.TickCollector,
	broadcaster *usecase.SignalBroadcaster,
	consumer *pkgkafka.Consumer,
	ticks *usecase.KafkaTicksHandler,
	publisher drepo.SignalPublisher,
	chClient *pkgch.Client,
	cache *icache.TTLCache,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		collector:   collector,
		broadcaster: broadcaster,
		consumer:    consumer,
		ticks:       ticks,
		publisher:   publisher,
		chClient:    chClient,
		cache:       cache,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srvOpts := []xhttp.ServerOption{}
	if a.cfg.Server.Port > 0 {
		srvOpts = append(srvOpts, xhttp.WithPort(a.cfg.Server.Port))
	}
	if a.cfg.Server.ReadTimeout > 0 {
		srvOpts = append(srvOpts, xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, srvOpts...)

	switch a.cfg.Source.Type {
	case "kafka":
		a.consumer.RegisterHandler(a.ticks)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka tick source started",
			applogger.String("topic", a.ticks.Topic()),
			applogger.Strings("symbols", a.cfg.Engine.Symbols))
	default:
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Error("collector start error", applogger.Error(err))
			return err
		}
		a.logger.Info("websocket tick source started",
			applogger.Strings("symbols", a.cfg.Engine.Symbols))
	}

	if a.broadcaster != nil {
		a.broadcaster.Start(ctx)
		a.logger.Info("signal broadcaster started",
			applogger.String("topic", a.cfg.Kafka.SignalsTopic))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.broadcaster != nil {
		a.broadcaster.Stop()
	}

	if a.collector != nil {
		if err := a.collector.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("signal publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		a.cache.Close()
	}
	a.logger.RemoveCollector()

	a.logger.Info("shutdown complete")
	return nil
}
