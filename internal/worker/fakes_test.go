package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type putCall struct {
	key         string
	body        []byte
	contentType string
}

type fakeStore struct {
	mu         sync.Mutex
	puts       []putCall
	ttls       []time.Duration
	putErr     error
	presignErr error
}

func (s *fakeStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts = append(s.puts, putCall{key: key, body: body, contentType: contentType})
	return nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls = append(s.ttls, ttl)
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://evidence.example.com/" + key, nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

type fakeSink struct {
	mu   sync.Mutex
	name string
	sent []domain.Notification
	err  error
	// wait, when set, blocks the delivery until closed or a second passes
	wait <-chan struct{}
	// signal, when set, is closed on the first delivery
	signal chan struct{}
	once   sync.Once
}

func (f *fakeSink) deliver(n domain.Notification) error {
	if f.signal != nil {
		f.once.Do(func() { close(f.signal) })
	}
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-time.After(time.Second):
			return errors.New("peer sink never started")
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeSink) Publish(_ context.Context, n domain.Notification) error { return f.deliver(n) }

func (f *fakeSink) Send(_ context.Context, n domain.Notification) error { return f.deliver(n) }

func (f *fakeSink) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeSink) notifications() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notification(nil), f.sent...)
}

type nackCall struct {
	tag     uint64
	requeue bool
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []nackCall
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, nackCall{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) acked() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acks...)
}

func (a *fakeAcknowledger) nacked() []nackCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]nackCall(nil), a.nacks...)
}

type fakeSource struct {
	deliveries chan amqp.Delivery
	acker      *fakeAcknowledger
	nextTag    uint64
	prefetch   int
	tag        string
	qosErr     error
	consumeErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		deliveries: make(chan amqp.Delivery, 16),
		acker:      &fakeAcknowledger{},
	}
}

func (s *fakeSource) SetQos(prefetchCount int) error {
	s.prefetch = prefetchCount
	return s.qosErr
}

func (s *fakeSource) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	s.tag = consumerTag
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	return s.deliveries, nil
}

func (s *fakeSource) push(body string) uint64 {
	s.nextTag++
	s.deliveries <- amqp.Delivery{
		Acknowledger: s.acker,
		DeliveryTag:  s.nextTag,
		Body:         []byte(body),
	}
	return s.nextTag
}

type recordingRouter struct {
	mu   sync.Mutex
	jobs []domain.Job
	fn   func(ctx context.Context, job domain.Job)
}

func (r *recordingRouter) Route(ctx context.Context, job domain.Job) domain.Result {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	fn := r.fn
	r.mu.Unlock()

	if fn != nil {
		fn(ctx, job)
	}
	return domain.Result{Stage: domain.StageDone, Dispatched: true}
}

func (r *recordingRouter) routed() []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Job(nil), r.jobs...)
}
