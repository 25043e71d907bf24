package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

const topicARN = "arn:aws:sns:us-east-1:000000000000:iot-home"

func TestDispatcher_Dispatch(t *testing.T) {
	publisher := &fakeSink{name: "sns"}
	hub := &fakeSink{}
	dispatcher := NewDispatcher(publisher, hub, topicARN, discardLogger())

	job := domain.Job{JobType: "motion", Message: "Intruder detected"}
	report := dispatcher.Dispatch(context.Background(), job, "https://evidence.example.com/motion/snap.jpg")

	require.NoError(t, report.Err())
	want := domain.Notification{
		Subject: "motion",
		Body:    "Intruder detected - investigate: https://evidence.example.com/motion/snap.jpg",
		Target:  topicARN,
	}
	assert.Equal(t, want, report.Notification)
	assert.Equal(t, []domain.Notification{want}, publisher.notifications())
	assert.Equal(t, []domain.Notification{want}, hub.notifications())
}

func TestDispatcher_SinkFailuresAreIndependent(t *testing.T) {
	tests := []struct {
		name       string
		publishErr error
		hubErr     error
	}{
		{name: "publish fails", publishErr: errors.New("topic not found")},
		{name: "hub fails", hubErr: errors.New("status 500")},
		{name: "both fail", publishErr: errors.New("throttled"), hubErr: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakeSink{err: tt.publishErr}
			hub := &fakeSink{err: tt.hubErr}
			dispatcher := NewDispatcher(publisher, hub, topicARN, discardLogger())

			report := dispatcher.Dispatch(context.Background(), domain.Job{JobType: "motion", Message: "m"}, "")

			assert.Len(t, publisher.notifications(), 1)
			assert.Len(t, hub.notifications(), 1)

			if tt.publishErr != nil {
				assert.ErrorIs(t, report.PublishErr, domain.ErrPublish)
			} else {
				assert.NoError(t, report.PublishErr)
			}
			if tt.hubErr != nil {
				assert.ErrorIs(t, report.HubErr, domain.ErrHubCallback)
			} else {
				assert.NoError(t, report.HubErr)
			}
			assert.Error(t, report.Err())
		})
	}
}

func TestDispatcher_SinksRunConcurrently(t *testing.T) {
	hubStarted := make(chan struct{})
	publisher := &fakeSink{wait: hubStarted}
	hub := &fakeSink{signal: hubStarted}
	dispatcher := NewDispatcher(publisher, hub, topicARN, discardLogger())

	report := dispatcher.Dispatch(context.Background(), domain.Job{JobType: "motion", Message: "m"}, "")

	require.NoError(t, report.Err())
}

func TestDispatcher_EmptyReference(t *testing.T) {
	publisher := &fakeSink{}
	hub := &fakeSink{}
	dispatcher := NewDispatcher(publisher, hub, topicARN, discardLogger())

	report := dispatcher.Dispatch(context.Background(), domain.Job{JobType: "door", Message: "Door opened"}, "")

	require.NoError(t, report.Err())
	assert.Equal(t, "Door opened - investigate: ", report.Notification.Body)
}
