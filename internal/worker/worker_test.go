package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func startWorker(t *testing.T, w *Worker) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func newTestWorker(source *fakeSource, router JobRouter, concurrency int) *Worker {
	return NewWorker(&Config{
		Logger:        discardLogger(),
		Source:        source,
		Router:        router,
		Concurrency:   concurrency,
		PrefetchCount: 4,
		ConsumerTag:   "notifier-test",
		QueueName:     "output",
	})
}

func TestWorker_AcksEveryDeliveryOnce(t *testing.T) {
	source := newFakeSource()
	router := &recordingRouter{}
	w := newTestWorker(source, router, 2)

	source.push(`{"job_type":"motion","message":"Intruder detected","file":"/tmp/snap.jpg"}`)
	source.push(`not json`)
	source.push(`{"job_type":"status","message":"OKAY"}`)

	cancel, errCh := startWorker(t, w)

	assert.Eventually(t, func() bool { return len(source.acker.acked()) == 3 }, waitFor, tick)

	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, w.Stop(context.Background()))

	assert.ElementsMatch(t, []uint64{1, 2, 3}, source.acker.acked())
	assert.Empty(t, source.acker.nacked())
	assert.Len(t, router.routed(), 2)

	assert.Equal(t, 4, source.prefetch)
	assert.Equal(t, "notifier-test", source.tag)
}

func TestWorker_AcksBeforeRoutingCompletes(t *testing.T) {
	source := newFakeSource()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	router := &recordingRouter{
		fn: func(context.Context, domain.Job) {
			started <- struct{}{}
			<-release
		},
	}
	w := newTestWorker(source, router, 1)

	source.push(`{"job_type":"motion","message":"Intruder detected","file":"/tmp/snap.jpg"}`)

	cancel, errCh := startWorker(t, w)
	<-started

	// the router is still blocked here
	assert.Eventually(t, func() bool {
		acked := source.acker.acked()
		return len(acked) == 1 && acked[0] == 1
	}, waitFor, tick)
	assert.Empty(t, source.acker.nacked())

	close(release)
	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, w.Stop(context.Background()))

	assert.Equal(t, []uint64{1}, source.acker.acked())
}

func TestWorker_RedeliveryIsRoutedAgain(t *testing.T) {
	source := newFakeSource()
	router := &recordingRouter{}
	w := newTestWorker(source, router, 1)

	body := `{"job_type":"door","message":"Door opened"}`
	source.push(body)
	source.push(body)

	cancel, errCh := startWorker(t, w)

	assert.Eventually(t, func() bool { return len(router.routed()) == 2 }, waitFor, tick)

	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, w.Stop(context.Background()))

	jobs := router.routed()
	assert.Equal(t, jobs[0], jobs[1])
}

func TestWorker_RecoversFromRouterPanic(t *testing.T) {
	source := newFakeSource()
	router := &recordingRouter{
		fn: func(_ context.Context, job domain.Job) {
			if job.JobType == "explode" {
				panic("boom")
			}
		},
	}
	w := newTestWorker(source, router, 1)

	source.push(`{"job_type":"explode","message":"m"}`)
	source.push(`{"job_type":"door","message":"Door opened"}`)

	cancel, errCh := startWorker(t, w)

	assert.Eventually(t, func() bool { return len(router.routed()) == 2 }, waitFor, tick)

	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, w.Stop(context.Background()))

	assert.ElementsMatch(t, []uint64{1, 2}, source.acker.acked())
}

func TestWorker_NacksUndispatchedDeliveryOnShutdown(t *testing.T) {
	source := newFakeSource()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	router := &recordingRouter{
		fn: func(context.Context, domain.Job) {
			started <- struct{}{}
			<-release
		},
	}
	w := newTestWorker(source, router, 1)

	source.push(`{"job_type":"motion","message":"first"}`)

	cancel, errCh := startWorker(t, w)
	<-started

	source.push(`{"job_type":"motion","message":"second"}`)
	assert.Eventually(t, func() bool { return len(source.deliveries) == 0 }, waitFor, tick)

	cancel()
	require.NoError(t, <-errCh)
	close(release)
	require.NoError(t, w.Stop(context.Background()))

	assert.Equal(t, []uint64{1}, source.acker.acked())
	assert.Equal(t, []nackCall{{tag: 2, requeue: true}}, source.acker.nacked())
	assert.Len(t, router.routed(), 1)
}

func TestWorker_DeliveriesClosed(t *testing.T) {
	source := newFakeSource()
	w := newTestWorker(source, &recordingRouter{}, 1)

	close(source.deliveries)

	err := w.Start(context.Background())
	assert.ErrorIs(t, err, ErrDeliveriesClosed)
	require.NoError(t, w.Stop(context.Background()))
}

func TestWorker_StopDeadlineCancelsJobs(t *testing.T) {
	source := newFakeSource()
	canceled := make(chan struct{})
	router := &recordingRouter{
		fn: func(ctx context.Context, _ domain.Job) {
			<-ctx.Done()
			close(canceled)
		},
	}
	w := newTestWorker(source, router, 1)

	source.push(`{"job_type":"motion","message":"stuck"}`)

	cancel, errCh := startWorker(t, w)
	assert.Eventually(t, func() bool { return len(router.routed()) == 1 }, waitFor, tick)

	cancel()
	require.NoError(t, <-errCh)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer stopCancel()

	err := w.Stop(stopCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-canceled:
	case <-time.After(waitFor):
		t.Fatal("in-flight job was not canceled")
	}
}

func TestWorker_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  *fakeSource
		wantMsg string
	}{
		{
			name:    "qos",
			source:  &fakeSource{qosErr: errors.New("channel closed")},
			wantMsg: "failed to set QoS",
		},
		{
			name:    "consume",
			source:  &fakeSource{consumeErr: errors.New("queue not found")},
			wantMsg: "failed to start consuming",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(tt.source, &recordingRouter{}, 1)

			err := w.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(&Config{Logger: discardLogger(), Source: newFakeSource(), Router: &recordingRouter{}})

	assert.Equal(t, 1, w.concurrency)
	assert.Equal(t, 1, w.prefetchCount)
	assert.NotEmpty(t, w.workerID)
}
