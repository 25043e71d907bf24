package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Job is one alert/evidence event decoded from the queue. It is passed by
// value and never modified after decoding.
type Job struct {
	JobType string `json:"job_type"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
}

// DecodeJob parses a queue message body
func DecodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return job, nil
}

// IsHeartbeat reports whether the job is a benign status ping
func (j Job) IsHeartbeat() bool {
	return strings.Contains(j.Message, HeartbeatMarker)
}

// HasArtifact reports whether the job carries an evidence file
func (j Job) HasArtifact() bool {
	return j.File != ""
}

// Validate checks the fields every notifiable job needs
func (j Job) Validate() error {
	if j.JobType == "" || j.Message == "" {
		return ErrMalformedJob
	}
	return nil
}
