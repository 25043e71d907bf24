// Package worker consumes jobs from the queue and routes them to storage and
// notification sinks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// ErrDeliveriesClosed is returned by Start when the broker stops delivering
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// MessageSource is the queue the worker consumes from
type MessageSource interface {
	SetQos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// JobRouter handles one decoded job
type JobRouter interface {
	Route(ctx context.Context, job domain.Job) domain.Result
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Source        MessageSource
	Router        JobRouter
	Concurrency   int
	PrefetchCount int
	ConsumerTag   string
	QueueName     string
}

// jobMessage is a decoded job handed from the consumer to the pool
type jobMessage struct {
	job         domain.Job
	deliveryTag uint64
}

// Worker represents the notifier's queue consumer and routing pool
type Worker struct {
	logger        *slog.Logger
	source        MessageSource
	router        JobRouter
	concurrency   int
	prefetchCount int
	workerID      string
	queueName     string
	jobsChan      chan *jobMessage
	wg            sync.WaitGroup
	cancelJobs    context.CancelFunc
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	workerID := cfg.ConsumerTag
	if workerID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "notifier"
		}
		workerID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}

	return &Worker{
		logger:        cfg.Logger,
		source:        cfg.Source,
		router:        cfg.Router,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		workerID:      workerID,
		queueName:     cfg.QueueName,
		jobsChan:      make(chan *jobMessage),
		cancelJobs:    func() {},
	}
}

// Start consumes until ctx is canceled or the broker closes the delivery
// channel. Jobs already handed to the pool keep running after Start returns;
// call Stop to wait for them.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancelJobs = cancel

	w.spawnWorkerPool(jobCtx)

	err = w.startMessageDispatcher(ctx, deliveries)
	close(w.jobsChan)
	return err
}

// Stop waits for in-flight jobs. When ctx expires first their context is
// canceled and ctx's error is returned.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("Stopping worker...")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancelJobs()
		w.logger.Info("Worker stopped")
		return nil
	case <-ctx.Done():
		w.cancelJobs()
		<-done
		w.logger.Warn("Worker stop deadline exceeded, in-flight jobs canceled")
		return ctx.Err()
	}
}
