package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/iot-notifier/internal/telemetry"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// setupConsumer sets QoS and starts the delivery stream
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if err := w.source.SetQos(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := w.source.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the pool. A
// delivery is acked once, right after hand-off, so a crash mid-route loses
// the job rather than repeating its notifications. Undecodable bodies are
// logged and acked.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return ErrDeliveriesClosed
			}

			job, err := domain.DecodeJob(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to decode job",
					slog.Any("error", err),
					slog.String("body", string(delivery.Body)),
				)
				telemetry.JobsTotal.WithLabelValues(telemetry.OutcomeDecodeFail).Inc()
				w.ack(delivery)
				continue
			}

			select {
			case w.jobsChan <- &jobMessage{job: job, deliveryTag: delivery.DeliveryTag}:
				w.ack(delivery)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching job")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.Any("error", nackErr),
					)
				}
				return nil
			}
		}
	}
}

func (w *Worker) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		w.logger.Error("Failed to ACK message",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", err),
		)
	}
}
