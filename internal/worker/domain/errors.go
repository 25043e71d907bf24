package domain

import "errors"

// Transport errors
var (
	// ErrQueueConnect is returned when the broker cannot be reached at start-up
	ErrQueueConnect = errors.New("queue connection failed")

	// ErrDecode is returned when a queue message is not a JSON job
	ErrDecode = errors.New("failed to decode job")
)

// Resource errors
var (
	// ErrArtifactUnavailable is returned when the evidence file cannot be opened.
	// Jobs failing this way are not notified.
	ErrArtifactUnavailable = errors.New("artifact unavailable")

	// ErrArtifactRead is returned when an opened evidence file cannot be read
	ErrArtifactRead = errors.New("artifact read failed")
)

// Upstream-service errors
var (
	ErrUpload      = errors.New("upload failed")
	ErrPresign     = errors.New("presign failed")
	ErrPublish     = errors.New("publish failed")
	ErrHubCallback = errors.New("hub callback failed")
)

// Validation errors
var (
	// ErrMalformedJob is returned when job_type or message is missing
	ErrMalformedJob = errors.New("malformed job")
)
