package domain

import "fmt"

// UploadOutcome is the result of persisting one evidence file. Reference is
// only set when both the upload and the signing succeeded.
type UploadOutcome struct {
	Succeeded bool
	Reference string
	Err       error
}

// UploadOK is an uploaded and signed artifact
func UploadOK(reference string) UploadOutcome {
	return UploadOutcome{Succeeded: true, Reference: reference}
}

// UploadUnsigned is an uploaded artifact whose reference could not be generated
func UploadUnsigned(err error) UploadOutcome {
	return UploadOutcome{Succeeded: true, Err: err}
}

// UploadFailed is an artifact that never reached storage
func UploadFailed(err error) UploadOutcome {
	return UploadOutcome{Err: err}
}

// Notification is the alert sent to both sinks
type Notification struct {
	Subject string `json:"subject"`
	Body    string `json:"message"`
	Target  string `json:"arn"`
}

// NewNotification builds the alert for a job. An empty reference still
// yields a well-formed body.
func NewNotification(job Job, reference, target string) Notification {
	return Notification{
		Subject: job.JobType,
		Body:    fmt.Sprintf("%s - investigate: %s", job.Message, reference),
		Target:  target,
	}
}

// Result is the terminal classification of one routed job
type Result struct {
	Stage      Stage
	Dispatched bool
	Upload     *UploadOutcome
}
