package history

import "time"

// Status is the lifecycle state of a pipeline run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID           string    `json:"id"`
	SourceKind   string    `json:"source_kind"`
	SourceName   string    `json:"source_name"`
	VideoID      string    `json:"video_id,omitempty"`
	Status       Status    `json:"status"`
	Provenance   string    `json:"provenance,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Transcript   string    `json:"transcript,omitempty"`
	Segments     []string  `json:"segments,omitempty"`
	SegmentCount int       `json:"segment_count"`
	PublicURL    string    `json:"public_url,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
}

// Duration reports how long a finished run took, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
