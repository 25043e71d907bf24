package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/iot-notifier/internal/hub/storage"
)

func TestNotificationCursor(t *testing.T) {
	in := &storage.NotificationCursor{
		CreatedAt:      time.Date(2024, 5, 1, 12, 30, 15, 123456789, time.UTC),
		NotificationID: "6f1c3b8e-4f1e-4a53-9f8e-2d9b3b7a1c11",
	}

	out, err := DecodeNotificationCursor(EncodeNotificationCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.NotificationID, out.NotificationID)
}

func TestDecodeNotificationCursor_Invalid(t *testing.T) {
	empty, err := DecodeNotificationCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	for _, raw := range []string{"no-separator", "abc|id", "123|", "1|2|3"} {
		_, err := DecodeNotificationCursor(base64.RawURLEncoding.EncodeToString([]byte(raw)))
		assert.Error(t, err, "cursor %q", raw)
	}

	_, err = DecodeNotificationCursor("%%%")
	assert.Error(t, err)
}
