package models

import "time"

// UpsertOutcome is the result of resolving one candidate against the job store.
type UpsertOutcome string

const (
	OutcomeCreated   UpsertOutcome = "created"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
	OutcomeSkipped   UpsertOutcome = "skipped"
)

// Pipeline stages, used when recording failures against a run.
const (
	StageConfig  = "config"
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageIngest  = "ingest"
	StagePublish = "publish"
)

// RunStatus values persisted on a run record.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// FailureRecord is one skip or failure accumulated into a run. Reason is
// always suitable for operator display.
type FailureRecord struct {
	Source   string `json:"source"`
	Stage    string `json:"stage"`
	JobRef   string `json:"job_ref,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Reason   string `json:"reason"`
}

// RunSummary is the finalized view of one orchestration pass, handed to the
// notification collaborator when the run completes.
type RunSummary struct {
	RunID            string          `json:"run_id"`
	Status           string          `json:"status"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	SourcesProcessed int             `json:"sources_processed"`
	JobsCreated      int             `json:"jobs_created"`
	JobsUpdated      int             `json:"jobs_updated"`
	JobsUnchanged    int             `json:"jobs_unchanged"`
	JobsSkipped      int             `json:"jobs_skipped"`
	Failures         []FailureRecord `json:"failures,omitempty"`
}

// PublishFailures counts only the publish-stage entries.
func (s RunSummary) PublishFailures() int {
	n := 0
	for _, f := range s.Failures {
		if f.Stage == StagePublish {
			n++
		}
	}
	return n
}
