package logger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/counciljobs/ingestion-service/common/db"
	"github.com/counciljobs/ingestion-service/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PipelineLogHook implements zerolog.Hook and mirrors info-and-above events
// into the pipeline_logs table so operators can inspect runs after the fact.
type PipelineLogHook struct {
	db *db.DB
}

// NewPipelineLogHook creates a new log hook
func NewPipelineLogHook(db *db.DB) *PipelineLogHook {
	return &PipelineLogHook{
		db: db,
	}
}

// Run implements zerolog.Hook.Run
func (h *PipelineLogHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < zerolog.InfoLevel {
		return
	}

	event := LogEvent{
		Message:   msg,
		EventType: level.String(),
	}

	// Persisted asynchronously so logging never blocks the pipeline.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.logToDatabase(ctx, event); err != nil {
			// Bypass the hook here to avoid recursion.
			log.Logger.Error().Err(err).Msg("Failed to persist log event")
		}
	}()
}

// logToDatabase stores the log in the database
func (h *PipelineLogHook) logToDatabase(ctx context.Context, event LogEvent) error {
	detailsJSON := json.RawMessage("{}")
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			detailsJSON = b
		}
	}

	params := repository.CreatePipelineLogParams{
		ID:        uuid.New().String(),
		RunID:     pgtype.Text{String: event.RunID, Valid: event.RunID != ""},
		Source:    pgtype.Text{String: event.Source, Valid: event.Source != ""},
		EventType: event.EventType,
		Message:   pgtype.Text{String: event.Message, Valid: event.Message != ""},
		Details:   detailsJSON,
		CreatedAt: time.Now(),
	}

	return h.db.Queries.CreatePipelineLog(ctx, params)
}

// LogEvent represents a pipeline log event
type LogEvent struct {
	RunID     string
	Source    string
	EventType string
	Message   string
	Details   interface{}
}

// InitializeLogging sets up global zerolog configuration with database hooks
func InitializeLogging(db *db.DB) {
	hook := NewPipelineLogHook(db)
	log.Logger = log.Logger.Hook(hook)
}

// RunLogService provides structured run-event logging to the database.
type RunLogService struct {
	db *db.DB
}

// NewRunLogService creates a new run log service
func NewRunLogService(db *db.DB) *RunLogService {
	return &RunLogService{
		db: db,
	}
}

// Log creates a log entry in the database and echoes it to the console.
func (s *RunLogService) Log(ctx context.Context, event LogEvent) error {
	detailsJSON := json.RawMessage("{}")
	if event.Details != nil {
		b, err := json.Marshal(event.Details)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal log details")
		} else {
			detailsJSON = b
		}
	}

	params := repository.CreatePipelineLogParams{
		ID:        uuid.New().String(),
		RunID:     pgtype.Text{String: event.RunID, Valid: event.RunID != ""},
		Source:    pgtype.Text{String: event.Source, Valid: event.Source != ""},
		EventType: event.EventType,
		Message:   pgtype.Text{String: event.Message, Valid: event.Message != ""},
		Details:   detailsJSON,
		CreatedAt: time.Now(),
	}

	if err := s.db.Queries.CreatePipelineLog(ctx, params); err != nil {
		log.Error().Err(err).Msg("Failed to insert log into database")
		return err
	}

	logEntry := log.Info()
	if event.RunID != "" {
		logEntry = logEntry.Str("runID", event.RunID)
	}
	if event.Source != "" {
		logEntry = logEntry.Str("source", event.Source)
	}
	logEntry.
		Str("eventType", event.EventType).
		Str("message", event.Message).
		Interface("details", event.Details).
		Msg("Pipeline event")

	return nil
}

// RunStart logs the start of an orchestration pass.
func (s *RunLogService) RunStart(ctx context.Context, runID string, sources []string) error {
	return s.Log(ctx, LogEvent{
		RunID:     runID,
		EventType: "run.started",
		Message:   "Run started",
		Details: map[string]interface{}{
			"sources": sources,
		},
	})
}

// SourceComplete logs completion of a single source within a run.
func (s *RunLogService) SourceComplete(ctx context.Context, runID, source string, created, updated, unchanged, skipped int) error {
	return s.Log(ctx, LogEvent{
		RunID:     runID,
		Source:    source,
		EventType: "source.completed",
		Message:   "Source processed",
		Details: map[string]interface{}{
			"created":   created,
			"updated":   updated,
			"unchanged": unchanged,
			"skipped":   skipped,
		},
	})
}

// SourceFailed logs a source-scoped failure; the run continues.
func (s *RunLogService) SourceFailed(ctx context.Context, runID, source, stage string, err error) error {
	return s.Log(ctx, LogEvent{
		RunID:     runID,
		Source:    source,
		EventType: "source.failed",
		Message:   "Source processing failed",
		Details: map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
		},
	})
}

// RunComplete logs the finalization of a run.
func (s *RunLogService) RunComplete(ctx context.Context, runID string, created, updated, failures int) error {
	return s.Log(ctx, LogEvent{
		RunID:     runID,
		EventType: "run.completed",
		Message:   "Run completed",
		Details: map[string]interface{}{
			"jobs_created":     created,
			"jobs_updated":     updated,
			"publish_failures": failures,
		},
	})
}
