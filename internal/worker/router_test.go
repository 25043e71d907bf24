package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

type routerFixture struct {
	store     *fakeStore
	publisher *fakeSink
	hub       *fakeSink
	router    *Router
}

func newRouterFixture(store *fakeStore) *routerFixture {
	f := &routerFixture{
		store:     store,
		publisher: &fakeSink{name: "sns"},
		hub:       &fakeSink{},
	}
	logger := discardLogger()
	f.router = NewRouter(
		NewUploader(store, 24*time.Hour, logger),
		NewDispatcher(f.publisher, f.hub, topicARN, logger),
		logger,
	)
	return f
}

func TestRouter_IntruderWithEvidence(t *testing.T) {
	f := newRouterFixture(&fakeStore{})
	file := writeArtifact(t, "snap.jpg", jpegBytes)

	result := f.router.Route(context.Background(), domain.Job{
		JobType: "motion",
		Message: "Intruder detected",
		File:    file,
	})

	assert.Equal(t, domain.StageDone, result.Stage)
	assert.True(t, result.Dispatched)
	require.NotNil(t, result.Upload)
	assert.True(t, result.Upload.Succeeded)

	want := domain.Notification{
		Subject: "motion",
		Body:    "Intruder detected - investigate: https://evidence.example.com/motion/snap.jpg",
		Target:  topicARN,
	}
	assert.Equal(t, []domain.Notification{want}, f.publisher.notifications())
	assert.Equal(t, []domain.Notification{want}, f.hub.notifications())
	assert.Equal(t, "motion/snap.jpg", f.store.puts[0].key)
}

func TestRouter_LogsStageTransitions(t *testing.T) {
	output := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := &fakeStore{}
	router := NewRouter(
		NewUploader(store, 24*time.Hour, logger),
		NewDispatcher(&fakeSink{name: "sns"}, &fakeSink{}, topicARN, logger),
		logger,
	)

	router.Route(context.Background(), domain.Job{
		JobType: "motion",
		Message: "Intruder detected",
		File:    writeArtifact(t, "snap.jpg", jpegBytes),
	})

	var stages []string
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "Job stage" {
			stages = append(stages, entry["stage"].(string))
		}
	}
	assert.Equal(t, []string{"received", "classified", "uploading", "notifying"}, stages)
}

func TestRouter_Classification(t *testing.T) {
	tests := []struct {
		name       string
		job        domain.Job
		wantStage  domain.Stage
		wantNotify bool
		wantBody   string
	}{
		{
			name:      "heartbeat with file is ignored",
			job:       domain.Job{JobType: "status", Message: "SYSTEM OKAY", File: "/tmp/none.jpg"},
			wantStage: domain.StageIgnored,
		},
		{
			name:      "heartbeat wins over missing fields",
			job:       domain.Job{Message: "OKAY"},
			wantStage: domain.StageIgnored,
		},
		{
			name:      "missing job type",
			job:       domain.Job{Message: "Intruder detected"},
			wantStage: domain.StageMalformed,
		},
		{
			name:      "missing message",
			job:       domain.Job{JobType: "motion", File: "/tmp/snap.jpg"},
			wantStage: domain.StageMalformed,
		},
		{
			name:       "no file notifies with empty reference",
			job:        domain.Job{JobType: "door", Message: "Door opened"},
			wantStage:  domain.StageDone,
			wantNotify: true,
			wantBody:   "Door opened - investigate: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(&fakeStore{})

			result := f.router.Route(context.Background(), tt.job)

			assert.Equal(t, tt.wantStage, result.Stage)
			assert.Equal(t, tt.wantNotify, result.Dispatched)
			assert.Nil(t, result.Upload)
			assert.Zero(t, f.store.putCount())

			if !tt.wantNotify {
				assert.Empty(t, f.publisher.notifications())
				assert.Empty(t, f.hub.notifications())
				return
			}
			require.Len(t, f.publisher.notifications(), 1)
			assert.Equal(t, tt.wantBody, f.publisher.notifications()[0].Body)
			assert.Len(t, f.hub.notifications(), 1)
		})
	}
}

func TestRouter_ArtifactFailures(t *testing.T) {
	tests := []struct {
		name       string
		file       func(t *testing.T) string
		store      *fakeStore
		wantStage  domain.Stage
		wantNotify bool
		wantErr    error
	}{
		{
			name:      "unopenable file suppresses notification",
			file:      func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.jpg") },
			store:     &fakeStore{},
			wantStage: domain.StageSuppressed,
			wantErr:   domain.ErrArtifactUnavailable,
		},
		{
			name:       "directory path notifies without reference",
			file:       func(t *testing.T) string { return t.TempDir() },
			store:      &fakeStore{},
			wantStage:  domain.StageDone,
			wantNotify: true,
			wantErr:    domain.ErrArtifactRead,
		},
		{
			name:       "upload failure notifies without reference",
			file:       func(t *testing.T) string { return writeArtifact(t, "snap.jpg", jpegBytes) },
			store:      &fakeStore{putErr: errors.New("bucket missing")},
			wantStage:  domain.StageDone,
			wantNotify: true,
		},
		{
			name:       "presign failure notifies without reference",
			file:       func(t *testing.T) string { return writeArtifact(t, "snap.jpg", jpegBytes) },
			store:      &fakeStore{presignErr: errors.New("expired credentials")},
			wantStage:  domain.StageDone,
			wantNotify: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(tt.store)

			result := f.router.Route(context.Background(), domain.Job{
				JobType: "motion",
				Message: "Intruder detected",
				File:    tt.file(t),
			})

			assert.Equal(t, tt.wantStage, result.Stage)
			assert.Equal(t, tt.wantNotify, result.Dispatched)
			require.NotNil(t, result.Upload)
			assert.Error(t, result.Upload.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, result.Upload.Err, tt.wantErr)
			}

			if !tt.wantNotify {
				assert.Empty(t, f.publisher.notifications())
				assert.Empty(t, f.hub.notifications())
				return
			}
			require.Len(t, f.hub.notifications(), 1)
			assert.Equal(t, "Intruder detected - investigate: ", f.hub.notifications()[0].Body)
			assert.Len(t, f.publisher.notifications(), 1)
		})
	}
}

func TestRouter_SinkFailureStillCompletes(t *testing.T) {
	f := newRouterFixture(&fakeStore{})
	f.publisher.err = errors.New("topic not found")

	result := f.router.Route(context.Background(), domain.Job{JobType: "door", Message: "Door opened"})

	assert.Equal(t, domain.StageDone, result.Stage)
	assert.True(t, result.Dispatched)
	assert.Len(t, f.hub.notifications(), 1)
}
