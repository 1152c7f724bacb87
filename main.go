package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"docrag/internal/app"
	"docrag/internal/config"
	"docrag/internal/logger"
)

func main() {
	// Initialize structured logger with correlation id support
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 1. Infrastructure: DB, migrations, Weaviate schema, NSQ producer
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	// 2. Wire features
	application, err := app.New(cfg, deps.DB, deps.VectorStore, deps.NSQProducer, log)
	if err != nil {
		return err
	}

	// 3. Ingestion worker consumes 'ingest.task'
	if cfg.EnableIngestWorker {
		nsqCfg := nsq.NewConfig()
		nsqCfg.MaxInFlight = cfg.IngestionConcurrency
		consumer, err := nsq.NewConsumer(config.TopicIngestTask, config.ChannelIngest, nsqCfg)
		if err != nil {
			return err
		}
		consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
			return application.IngestConsumer.HandleMessage(m)
		}), cfg.IngestionConcurrency)

		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			// Fall back to direct nsqd connection when lookupd is absent
			slog.Warn("failed to connect to NSQLookupd, trying nsqd directly", "error", err)
			if err := consumer.ConnectToNSQD(cfg.NSQDHost); err != nil {
				return err
			}
		}
		defer consumer.Stop()
		slog.Info("ingestion worker started", "concurrency", cfg.IngestionConcurrency)
	}

	// 4. HTTP API
	if cfg.EnableAPI {
		return application.Run(ctx)
	}

	<-ctx.Done()
	return nil
}
