package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/cuongbtq/iot-notifier/internal/telemetry"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop routes jobs until jobsChan is closed
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for msg := range w.jobsChan {
		w.routeJob(ctx, workerName, msg)
	}

	w.logger.Debug("Worker goroutine stopping - jobsChan closed",
		slog.String("worker_name", workerName),
	)
}

// routeJob runs one job; a panic is logged and the goroutine carries on
func (w *Worker) routeJob(ctx context.Context, workerName string, msg *jobMessage) {
	telemetry.InFlightJobs.Inc()
	defer telemetry.InFlightJobs.Dec()

	defer func() {
		if r := recover(); r != nil {
			telemetry.JobsTotal.WithLabelValues(telemetry.OutcomePanic).Inc()
			w.logger.Error("Recovered panic while routing job",
				slog.String("worker_name", workerName),
				slog.String("job_type", msg.job.JobType),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	result := w.router.Route(ctx, msg.job)

	w.logger.Debug("Job routed",
		slog.String("worker_name", workerName),
		slog.Uint64("delivery_tag", msg.deliveryTag),
		slog.String("stage", string(result.Stage)),
		slog.Bool("dispatched", result.Dispatched),
	)
}
