package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/iot-notifier/internal/telemetry"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// Publisher sends a notification to the alert topic
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
	Name() string
}

// HubSender posts a notification to the hub
type HubSender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// DispatchReport holds the result of each sink. Neither failure affects the other.
type DispatchReport struct {
	Notification domain.Notification
	PublishErr   error
	HubErr       error
}

// Err joins both sink errors, nil when both deliveries succeeded
func (r DispatchReport) Err() error {
	return errors.Join(r.PublishErr, r.HubErr)
}

// Dispatcher fans a notification out to the topic and the hub
type Dispatcher struct {
	publisher Publisher
	hub       HubSender
	target    string
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher publishing to target
func NewDispatcher(publisher Publisher, hub HubSender, target string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		hub:       hub,
		target:    target,
		logger:    logger,
	}
}

// Dispatch builds the notification for job and delivers it to both sinks
// concurrently. It returns once both attempts finish. There are no retries.
func (d *Dispatcher) Dispatch(ctx context.Context, job domain.Job, reference string) DispatchReport {
	n := domain.NewNotification(job, reference, d.target)
	report := DispatchReport{Notification: n}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := d.publisher.Publish(ctx, n); err != nil {
			report.PublishErr = fmt.Errorf("%w: %v", domain.ErrPublish, err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := d.hub.Send(ctx, n); err != nil {
			report.HubErr = fmt.Errorf("%w: %v", domain.ErrHubCallback, err)
		}
	}()

	wg.Wait()

	d.record(d.publisher.Name(), report.PublishErr, n)
	d.record("hub", report.HubErr, n)

	return report
}

func (d *Dispatcher) record(sink string, err error, n domain.Notification) {
	if err != nil {
		telemetry.NotificationsTotal.WithLabelValues(sink, telemetry.ResultError).Inc()
		d.logger.Error("Notification delivery failed",
			slog.String("sink", sink),
			slog.String("subject", n.Subject),
			slog.Any("error", err),
		)
		return
	}

	telemetry.NotificationsTotal.WithLabelValues(sink, telemetry.ResultOK).Inc()
	d.logger.Info("Notification delivered",
		slog.String("sink", sink),
		slog.String("subject", n.Subject),
	)
}
