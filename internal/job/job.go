package job

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current lifecycle state of a job
type Status string

// Possible job status values
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether no further transitions can occur from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Input is the caller-supplied description of an inference job.
// The queue and store treat it as an inert payload; the worker validates it.
type Input struct {
	Model          string
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
}

// Job is a unit of queued work. It is moved from the submitter to the worker
// through the queue and has no further existence once dequeued.
type Job struct {
	ID    uuid.UUID
	Input Input
}

// Record is the value held by the status store for a job.
// Payload and Elapsed are set only for COMPLETED, Reason only for FAILED.
type Record struct {
	Status  Status
	Payload string
	Elapsed time.Duration
	Reason  string
}

func pendingRecord() Record {
	return Record{Status: StatusPending}
}

func processingRecord() Record {
	return Record{Status: StatusProcessing}
}

func completedRecord(payload string, elapsed time.Duration) Record {
	return Record{Status: StatusCompleted, Payload: payload, Elapsed: elapsed}
}

func failedRecord(reason string) Record {
	return Record{Status: StatusFailed, Reason: reason}
}
