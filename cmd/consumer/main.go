package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/app"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/config"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/grpcserver"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/guardiansync"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/kafka"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Consumer stopped", zap.Error(err))
	}
	log.Info("Consumer gracefully stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required for the consumer")
	}

	st, err := app.OpenStore(ctx, cfg.Store, cfg.Admin, log.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	consumerCfg := kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}
	reader := kafka.NewReader(consumerCfg)
	defer func() {
		log.Info("Closing Kafka reader")
		if err := reader.Close(); err != nil {
			log.Error("Error closing Kafka reader", zap.Error(err))
		}
	}()

	synchronizer := guardiansync.New(st.Boxes, cfg.Store.CallTimeout, log.Named("guardiansync"))
	consumer := kafka.NewConsumer(reader, synchronizer.HandleEvent, consumerCfg, log.Named("consumer"))
	health := grpcserver.NewServer(map[string]grpcserver.Check{
		"lockbox.store": st.Ping,
	}, 10*time.Second, log.Named("health"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		return health.ListenAndServe(gctx, cfg.GRPCPort)
	})
	return g.Wait()
}
