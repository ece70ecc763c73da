package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/metrics"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/repository"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/storage"
)

type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// StaleAfter is how long a PROCESSING task may sit before another relay
	// takes it over.
	StaleAfter time.Duration
}

// Publisher relays outbox tasks to a Producer.
type Publisher struct {
	repo           storage.OutboxTaskRepository
	producer       Producer
	config         PublisherConfig
	logger         *zap.Logger
	timeNow        func() time.Time
	wg             sync.WaitGroup
	shutdownSignal chan struct{}
	stopOnce       sync.Once
}

func NewPublisher(repo storage.OutboxTaskRepository, producer Producer, config PublisherConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		repo:           repo,
		producer:       producer,
		config:         config,
		logger:         logger,
		timeNow:        time.Now,
		shutdownSignal: make(chan struct{}),
	}
}

func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("Starting Outbox Publisher")
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("Outbox Publisher failed to process batch", zap.Error(err))
			}
		case <-p.shutdownSignal:
			p.logger.Info("Outbox Publisher received shutdown signal, stopping")
			return
		case <-ctx.Done():
			p.logger.Info("Outbox Publisher context cancelled, stopping")
			return
		}
	}
}

// Shutdown stops Run, waits for the batch in flight and closes the producer.
func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		p.logger.Info("Initiating Outbox Publisher shutdown")
		close(p.shutdownSignal)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			p.logger.Info("Outbox Publisher shutdown complete")
		case <-shutdownCtx.Done():
			p.logger.Warn("Outbox Publisher shutdown timed out")
		}

		if err := p.producer.Close(); err != nil {
			p.logger.Error("Failed to close producer", zap.Error(err))
		}
	})
}

func (p *Publisher) processBatch(ctx context.Context) error {
	staleBefore := p.timeNow().Add(-p.config.StaleAfter)
	tasks, err := p.repo.ClaimProcessable(ctx, p.config.BatchSize, p.config.MaxAttempts, staleBefore)
	if err != nil {
		return fmt.Errorf("failed to claim processable tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	p.logger.Debug("Outbox Publisher claimed tasks", zap.Int("count", len(tasks)))

	for _, task := range tasks {
		select {
		case <-p.shutdownSignal:
			p.logger.Info("Shutdown signal received during batch processing", zap.Stringer("task_id", task.ID))
			return errors.New("publisher shutdown during batch processing")
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.processSingleTask(ctx, task); err != nil {
			p.logger.Error("Failed to process task", zap.Stringer("task_id", task.ID), zap.Error(err))
		}
	}
	return nil
}

func (p *Publisher) processSingleTask(ctx context.Context, task *repository.OutboxTask) error {
	l := p.logger.With(zap.Stringer("task_id", task.ID), zap.Int("attempt", task.Attempts+1))

	key := task.Key
	if key == "" {
		key = task.ID.String()
	}
	newAttempts := task.Attempts + 1

	err := p.producer.SendMessage(ctx, Message{
		Topic:   task.Topic,
		Key:     []byte(key),
		Value:   task.Payload,
		Headers: task.Attributes,
	})
	if err != nil {
		l.Warn("Failed to send task", zap.Error(err))
		metrics.OutboxTasksTotal.WithLabelValues("failed").Inc()
		errMsg := err.Error()
		// A lost write race is retried without spending an attempt.
		if errors.Is(err, repository.ErrVersionConflict) {
			newAttempts = task.Attempts
			l.Info("Task hit a concurrent write, retrying without counting the attempt")
		} else if newAttempts >= p.config.MaxAttempts {
			l.Error("Task reached max attempts, leaving it FAILED", zap.Int("max_attempts", p.config.MaxAttempts))
		}
		updateErr := p.repo.UpdateTaskStatus(ctx, task.ID, repository.TaskStatusFailed, newAttempts, &errMsg, nil)
		if updateErr != nil {
			return fmt.Errorf("failed to update task status after send failure: %w", updateErr)
		}
		return err
	}

	now := p.timeNow().UTC()
	if err := p.repo.UpdateTaskStatus(ctx, task.ID, repository.TaskStatusDone, newAttempts, nil, &now); err != nil {
		return fmt.Errorf("failed to update task status after successful send: %w", err)
	}
	metrics.OutboxTasksTotal.WithLabelValues("sent").Inc()
	l.Debug("Task sent")
	return nil
}
