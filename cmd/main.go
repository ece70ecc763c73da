package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/app"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/boxes"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/config"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/guardiansync"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/invitations"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/kafka"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/logger"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/server"
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
		log.Fatal("Service stopped", zap.Error(err))
	}
	log.Info("Service gracefully stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	policy, err := lockbox.ParsePolicy(cfg.Unlock.Policy, cfg.Unlock.Threshold)
	if err != nil {
		return err
	}

	st, err := app.OpenStore(ctx, cfg.Store, cfg.Admin, log.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	boxService := boxes.NewService(st.Boxes, boxes.Config{
		MaxRetries:  cfg.Store.MaxRetries,
		CallTimeout: cfg.Store.CallTimeout,
		Policy:      policy,
	}, log.Named("boxes"))
	invitationService := invitations.NewService(st.Invitations, boxService, invitations.Config{
		Topic:       cfg.Kafka.Topic,
		MaxRetries:  cfg.Store.MaxRetries,
		CallTimeout: cfg.Store.CallTimeout,
	}, log.Named("invitations"))

	var producer kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewKafkaProducer(cfg.Kafka.Brokers, log.Named("producer"))
	} else {
		synchronizer := guardiansync.New(st.Boxes, cfg.Store.CallTimeout, log.Named("guardiansync"))
		producer = kafka.NewLoopbackProducer(synchronizer.HandleEvent, log.Named("loopback"))
		log.Warn("KAFKA_BROKERS is empty, delivering invitation events in process")
	}
	publisher := kafka.NewPublisher(st.Outbox, producer, kafka.PublisherConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		StaleAfter:   cfg.Outbox.StaleAfter,
	}, log.Named("outbox"))

	srv := server.New(boxService, invitationService, st.Admin, server.Config{
		TrustUserHeader: cfg.HTTP.TrustUserHeader,
		RedeemRate:      rate.Limit(cfg.Redeem.RatePerMinute / 60),
		RedeemBurst:     cfg.Redeem.Burst,
		Ready:           st.Ping,
	}, log.Named("http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.HTTP.Port)
	})
	g.Go(func() error {
		publisher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		publisher.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
