package messaging

// Constants for NATS subjects
const (
	// SubjectRunTrigger receives RunRequest messages; consumed by a queue
	// group so one instance picks each trigger up.
	SubjectRunTrigger = "runs.trigger"

	// SubjectRunCompleted carries the finalized run summary for the
	// notification collaborator (operator mailer).
	SubjectRunCompleted = "runs.completed"

	// RunTriggerQueueGroup is the queue group name for run trigger consumers.
	RunTriggerQueueGroup = "run-workers"
)

// RunRequest asks the orchestrator to execute a run.
type RunRequest struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"` // empty means every active source
	DryRun bool   `json:"dry_run,omitempty"`
}
