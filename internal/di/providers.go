package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"DipWatch/internal/domain/repository"
	"DipWatch/internal/handler/api"
	mid "DipWatch/internal/middleware"
	internalrepo "DipWatch/internal/repository"
	"DipWatch/internal/service/binance"
	icache "DipWatch/internal/service/cache"
	"DipWatch/internal/service/feed"
	"DipWatch/internal/service/market"
	"DipWatch/internal/usecase"
	pkgcache "DipWatch/pkg/cache"
	pkgch "DipWatch/pkg/clickhouse"
	"DipWatch/pkg/config"
	xhttp "DipWatch/pkg/http"
	pkgkafka "DipWatch/pkg/kafka"
	applogger "DipWatch/pkg/logger"
	"DipWatch/pkg/metrics"
	"DipWatch/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTTLCache creates the shared request cache.
func ProvideTTLCache(cfg *config.Config) *icache.TTLCache {
	opts := []icache.Option{}
	if cfg.Cache.MaxEntries > 0 {
		opts = append(opts, icache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	if cfg.Cache.SweepInterval > 0 {
		opts = append(opts, icache.WithSweepInterval(cfg.Cache.SweepInterval))
	}
	if cfg.Cache.ProducerTimeout > 0 {
		opts = append(opts, icache.WithProducerTimeout(cfg.Cache.ProducerTimeout))
	}
	return icache.NewTTLCache(opts...)
}

// ProvideMarketFeed creates the Binance WebSocket feed.
func ProvideMarketFeed(cfg *config.Config) repository.MarketFeed {
	opts := []binance.FeedOption{}
	if cfg.Binance.StreamURL != "" {
		opts = append(opts, binance.WithStreamURL(cfg.Binance.StreamURL))
	}
	if cfg.Binance.PingInterval > 0 {
		opts = append(opts, binance.WithPingInterval(cfg.Binance.PingInterval))
	}
	return binance.NewFeed(opts...)
}

// ProvideFeedManager creates the per-symbol connection manager.
func ProvideFeedManager(mf repository.MarketFeed, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *feed.Manager {
	opts := []feed.ManagerOption{}
	if cfg.Binance.DialTimeout > 0 {
		opts = append(opts, feed.WithDialTimeout(cfg.Binance.DialTimeout))
	}
	return feed.NewManager(mf, m, l, opts...)
}

// ProvideTimeframes resolves configured timeframes, defaulting to all.
func ProvideTimeframes(cfg *config.Config) []repository.Timeframe {
	if len(cfg.Engine.Timeframes) == 0 {
		return repository.AllTimeframes()
	}
	tfs := make([]repository.Timeframe, 0, len(cfg.Engine.Timeframes))
	for _, s := range cfg.Engine.Timeframes {
		tfs = append(tfs, repository.NormalizeTimeframe(s))
	}
	return tfs
}

// ProvideCandleAggregator creates the candle store.
func ProvideCandleAggregator(cfg *config.Config, m repository.Metrics) *usecase.CandleAggregator {
	return usecase.NewCandleAggregator(cfg.Engine.Capacity, m)
}

// ProvideTechnicalEngine creates the indicator engine.
func ProvideTechnicalEngine(mgr *feed.Manager, agg *usecase.CandleAggregator, tfs []repository.Timeframe, l *applogger.Logger) *usecase.TechnicalEngine {
	return usecase.NewTechnicalEngine(mgr, agg, tfs, l)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTickArchive creates the raw tick archive, or nil when disabled.
func ProvideTickArchive(chClient *pkgch.Client, cfg *config.Config) (repository.TickArchive, error) {
	if chClient == nil {
		return nil, nil
	}
	archive := internalrepo.NewClickHouseTickArchive(chClient, cfg.ClickHouse.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return archive, nil
}

// ProvideArchivePipeline buffers ticks in front of the archive, nil when no archive.
func ProvideArchivePipeline(archive repository.TickArchive, m repository.Metrics, cfg *config.Config) *mid.ArchivePipeline {
	if archive == nil {
		return nil
	}
	opts := []mid.PipelineOption{}
	if cfg.ClickHouse.BatchSize > 0 {
		opts = append(opts, mid.WithBatch(cfg.ClickHouse.BatchSize, cfg.ClickHouse.BatchTimeout))
	}
	return mid.NewArchivePipeline(archive, m, opts...)
}

// ProvideTickCollector wires symbols into the engine and archive.
func ProvideTickCollector(mgr *feed.Manager, engine *usecase.TechnicalEngine, pipe *mid.ArchivePipeline, cfg *config.Config) *usecase.TickCollector {
	return usecase.NewTickCollector(mgr, engine, pipe, cfg.Engine.Symbols)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher creates the Kafka signal publisher, nil without a producer.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil || cfg.Kafka.SignalsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideSignalBroadcaster publishes verdict changes, nil without a publisher.
func ProvideSignalBroadcaster(engine *usecase.TechnicalEngine, pub repository.SignalPublisher, cfg *config.Config, l *applogger.Logger, m repository.Metrics) *usecase.SignalBroadcaster {
	if pub == nil {
		return nil
	}
	tf := repository.DefaultTimeframe()
	if len(cfg.Engine.Timeframes) > 0 {
		tf = repository.NormalizeTimeframe(cfg.Engine.Timeframes[0])
	}
	return usecase.NewSignalBroadcaster(engine, pub, cfg.Engine.Symbols, tf, l, m)
}

// ProvideKafkaConsumer creates a consumer for the ticks topic, nil unless
// the tick source is kafka.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Source.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideKafkaTicksHandler registers the handler for the ticks topic.
func ProvideKafkaTicksHandler(engine *usecase.TechnicalEngine, m repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TicksTopic, engine, m)
}

// ProvideSnapshotSource creates the cached 24h market snapshot fetcher.
// With Redis enabled, snapshots are shared across replicas through a
// layered memory+Redis store before the in-process TTL cache.
func ProvideSnapshotSource(cfg *config.Config, cache *icache.TTLCache, m repository.Metrics) (repository.SnapshotSource, error) {
	opts := []market.RestOption{}
	if cfg.Binance.RestURL != "" {
		opts = append(opts, market.WithBaseURL(cfg.Binance.RestURL))
	}

	var source repository.SnapshotSource = market.NewRestSource(opts...)
	if cfg.Cache.Redis.Enabled {
		host, port := splitHostPort(cfg.Cache.Redis.Addr)
		redisCache, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		source = market.NewSharedSnapshots(source, pkgcache.NewLayeredCache(redisCache))
	}
	return market.NewCachedSnapshots(source, cache, m), nil
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(l *applogger.Logger, engine *usecase.TechnicalEngine, snapshots repository.SnapshotSource, cache *icache.TTLCache, archive repository.TickArchive, cfg *config.Config) xhttp.Handler {
	opts := []api.HandlerOption{api.WithArchive(archive)}
	if cfg.RateLimit.Enabled {
		opts = append(opts, api.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	return api.NewTechnicalsHandler(l, engine, snapshots, cache, opts...)
}

// kafkaLogSink adapts the producer to the log collector's publisher.
type kafkaLogSink struct {
	p *pkgkafka.Producer
}

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	broadcaster *usecase.SignalBroadcaster,
	consumer *pkgkafka.Consumer,
	ticks *usecase.KafkaTicksHandler,
	pub repository.SignalPublisher,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	cache *icache.TTLCache,
	httpHandler xhttp.Handler,
) *server.App {
	// aggregate error logs to kafka when a producer and topic are available
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogSink{p: producer},
		})
	}
	return server.New(cfg, l, collector, broadcaster, consumer, ticks, pub, chClient, cache, httpHandler)
}
