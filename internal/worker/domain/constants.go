package domain

import "time"

// HeartbeatMarker marks a benign job that is dropped without notification
const HeartbeatMarker = "OKAY"

// DefaultPresignTTL is how long a retrieval reference stays valid
const DefaultPresignTTL = 24 * time.Hour

// Stage is a step of the per-job state machine:
// received -> classified -> {ignored | malformed | uploading -> notifying | notifying} -> done
type Stage string

const (
	StageReceived   Stage = "received"
	StageClassified Stage = "classified"
	StageIgnored    Stage = "ignored"
	StageMalformed  Stage = "malformed"
	StageUploading  Stage = "uploading"
	StageNotifying  Stage = "notifying"
	StageSuppressed Stage = "suppressed"
	StageDone       Stage = "done"
)
