package orchestrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/counciljobs/ingestion-service/common/fetch"
	"github.com/counciljobs/ingestion-service/common/messaging"
	"github.com/counciljobs/ingestion-service/common/models"
	"github.com/counciljobs/ingestion-service/common/runstate"
	"github.com/counciljobs/ingestion-service/common/work"
	"github.com/counciljobs/ingestion-service/pipeline/extract"
	"github.com/counciljobs/ingestion-service/pipeline/ingest"
	"github.com/counciljobs/ingestion-service/pipeline/publish"
	"github.com/counciljobs/ingestion-service/pipeline/source"
	"github.com/counciljobs/ingestion-service/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

// ErrRunInProgress mirrors the lock manager's rejection for an overlapping
// run on the same scope.
var ErrRunInProgress = errors.New("a run is already in progress for this scope")

// sourceTimeout bounds one source's whole fetch/extract/ingest/publish chain.
const sourceTimeout = 15 * time.Minute

type runStore interface {
	CreateRun(ctx context.Context, id string) (repository.Run, error)
	FinalizeRun(ctx context.Context, arg repository.FinalizeRunParams) (repository.Run, error)
	CreateRunFailure(ctx context.Context, arg repository.CreateRunFailureParams) error
	ExpireJobsPastDeadline(ctx context.Context, deadline pgtype.Date) (int64, error)
}

type sourceRegistry interface {
	Resolve(ctx context.Context, name string) (source.SourceConfig, error)
	Active(ctx context.Context) ([]source.SourceConfig, []error, error)
}

type sourceExtractor interface {
	ExtractSource(ctx context.Context, cfg source.SourceConfig, maxPages int) ([]models.Candidate, []extract.SoftFailure, error)
}

type upsertEngine interface {
	Upsert(ctx context.Context, candidate models.Candidate) (ingest.Result, error)
}

type jobPublisher interface {
	ActiveTargets(ctx context.Context) ([]publish.Target, error)
	Publish(ctx context.Context, job repository.Job, targets []publish.Target) []publish.TargetResult
}

type runLocks interface {
	Acquire(ctx context.Context, scope string) error
	Release(ctx context.Context, scope string) error
}

type notifier interface {
	Publish(subject string, data []byte) error
}

type eventLog interface {
	RunStart(ctx context.Context, runID string, sources []string) error
	SourceComplete(ctx context.Context, runID, source string, created, updated, unchanged, skipped int) error
	SourceFailed(ctx context.Context, runID, source, stage string, err error) error
	RunComplete(ctx context.Context, runID string, created, updated, failures int) error
}

// Options selects what a run covers.
type Options struct {
	// Source runs a single named source; empty means every active source.
	Source string
	// DryRun skips the publish fan-out entirely.
	DryRun bool
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Registry  sourceRegistry
	Extractor sourceExtractor
	Engine    upsertEngine
	Publisher jobPublisher
	Store     runStore
	Locks     runLocks
	Broker    notifier
	Events    eventLog
}

// Orchestrator sequences fetch, extract, ingest and publish per source,
// aggregates run statistics, and owns the deadline expiry sweep. Sources run
// in parallel on a bounded pool; a broken source never halts the run.
type Orchestrator struct {
	deps          Deps
	maxSourceConc int
	maxPages      int
	now           func() time.Time
}

func New(deps Deps, maxSourceConc, maxPages int) *Orchestrator {
	if maxSourceConc < 1 {
		maxSourceConc = 1
	}
	return &Orchestrator{
		deps:          deps,
		maxSourceConc: maxSourceConc,
		maxPages:      maxPages,
		now:           time.Now,
	}
}

type sourceOutcome struct {
	source    string
	created   int
	updated   int
	unchanged int
	skipped   int
	failures  []models.FailureRecord
	// fatal marks a persistence-collaborator failure that aborts the run.
	fatal error
	// cancelled marks a source that never started because the run was
	// aborted at the source boundary.
	cancelled bool
}

// Run executes one orchestration pass and returns the finalized summary.
// Only persistence failures abort the whole run; everything source-scoped is
// recorded and skipped past.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (models.RunSummary, error) {
	scope := "all"
	if opts.Source != "" {
		scope = "source:" + opts.Source
	}
	if err := o.deps.Locks.Acquire(ctx, scope); err != nil {
		if errors.Is(err, runstate.ErrAlreadyRunning) {
			return models.RunSummary{}, fmt.Errorf("%w: %s", ErrRunInProgress, scope)
		}
		return models.RunSummary{}, err
	}
	defer func() {
		if err := o.deps.Locks.Release(context.WithoutCancel(ctx), scope); err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("Error releasing run lock")
		}
	}()

	runID := uuid.Must(uuid.NewV7()).String()
	if _, err := o.deps.Store.CreateRun(ctx, runID); err != nil {
		return models.RunSummary{}, fmt.Errorf("failed to create run record: %w", err)
	}

	summary := models.RunSummary{
		RunID:     runID,
		StartedAt: o.now().UTC(),
	}

	sources, configFailures := o.loadSources(ctx, opts)
	if o.deps.Events != nil {
		names := make([]string, 0, len(sources))
		for _, s := range sources {
			names = append(names, s.Name)
		}
		o.deps.Events.RunStart(ctx, runID, names)
	}
	summary.Failures = append(summary.Failures, configFailures...)
	o.recordFailures(ctx, runID, configFailures)

	var targets []publish.Target
	if !opts.DryRun && len(sources) > 0 {
		var err error
		targets, err = o.deps.Publisher.ActiveTargets(ctx)
		if err != nil {
			return o.finalize(ctx, summary, models.RunStatusFailed), fmt.Errorf("failed to load publish targets: %w", err)
		}
	}

	outcomes, fatal := o.processSources(ctx, runID, sources, targets, opts.DryRun)
	for _, outcome := range outcomes {
		if outcome.cancelled {
			continue
		}
		summary.SourcesProcessed++
		summary.JobsCreated += outcome.created
		summary.JobsUpdated += outcome.updated
		summary.JobsUnchanged += outcome.unchanged
		summary.JobsSkipped += outcome.skipped
		summary.Failures = append(summary.Failures, outcome.failures...)
	}

	status := models.RunStatusCompleted
	switch {
	case fatal != nil:
		status = models.RunStatusFailed
	case ctx.Err() != nil:
		status = models.RunStatusCancelled
	}

	summary = o.finalize(ctx, summary, status)
	if fatal != nil {
		return summary, fatal
	}

	o.notify(ctx, summary)
	return summary, nil
}

func (o *Orchestrator) loadSources(ctx context.Context, opts Options) ([]source.SourceConfig, []models.FailureRecord) {
	if opts.Source != "" {
		cfg, err := o.deps.Registry.Resolve(ctx, opts.Source)
		if err != nil {
			return nil, []models.FailureRecord{{
				Source: opts.Source,
				Stage:  models.StageConfig,
				Reason: err.Error(),
			}}
		}
		return []source.SourceConfig{cfg}, nil
	}

	sources, invalid, err := o.deps.Registry.Active(ctx)
	if err != nil {
		return nil, []models.FailureRecord{{
			Source: "*",
			Stage:  models.StageConfig,
			Reason: err.Error(),
		}}
	}

	var failures []models.FailureRecord
	for _, e := range invalid {
		var ce *source.ConfigurationError
		name := "*"
		if errors.As(e, &ce) {
			name = ce.Source
		}
		failures = append(failures, models.FailureRecord{
			Source: name,
			Stage:  models.StageConfig,
			Reason: e.Error(),
		})
	}
	return sources, failures
}

func (o *Orchestrator) processSources(ctx context.Context, runID string, sources []source.SourceConfig, targets []publish.Target, dryRun bool) ([]sourceOutcome, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	// The result buffer must hold every source's result; the pool drops a
	// result after a bounded send, which would leave the receive loop below
	// one short.
	pool, err := work.NewWorkerPoolWithConfig[sourceOutcome](work.PoolConfig{
		NumWorkers:      o.maxSourceConc,
		TaskChannelSize: len(sources),
		ResultChanSize:  len(sources),
	})
	if err != nil {
		return nil, err
	}
	// The pool itself runs on a background context; run cancellation is
	// observed inside processSource, at the source boundary, so in-flight
	// sources finish naturally and every task still reports a result.
	pool.Start(context.Background(), "run-"+runID)
	defer pool.Stop()

	for _, cfg := range sources {
		cfg := cfg
		task, err := work.NewTask(func(context.Context) (sourceOutcome, error) {
			return o.processSource(ctx, runID, cfg, targets, dryRun), nil
		},
			work.WithID[sourceOutcome]("source-"+cfg.Name),
			work.WithTimeout[sourceOutcome](sourceTimeout),
		)
		if err != nil {
			return nil, err
		}
		if err := pool.AddTask(context.Background(), task); err != nil {
			return nil, err
		}
	}

	outcomes := make([]sourceOutcome, 0, len(sources))
	var fatal error
	for i := 0; i < len(sources); i++ {
		res, ok := <-pool.Results()
		if !ok {
			break
		}
		if res.Error != nil {
			// A timed-out or panicked source is still source-scoped.
			name := strings.TrimPrefix(res.TaskID, "source-")
			outcome := sourceOutcome{source: name, failures: []models.FailureRecord{{
				Source: name,
				Stage:  models.StageExtract,
				Reason: res.Error.Error(),
			}}}
			o.recordFailures(ctx, runID, outcome.failures)
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome := res.Result
		if outcome.fatal != nil && fatal == nil {
			fatal = outcome.fatal
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, fatal
}

// processSource runs the sequential fetch → extract → ingest → publish chain
// for one source. Upsert always precedes publish for the same job, so sinks
// only ever see persisted, dedup-resolved records.
func (o *Orchestrator) processSource(ctx context.Context, runID string, cfg source.SourceConfig, targets []publish.Target, dryRun bool) sourceOutcome {
	outcome := sourceOutcome{source: cfg.Name}

	// Cancellation takes effect here, at the source boundary.
	if ctx.Err() != nil {
		outcome.cancelled = true
		return outcome
	}

	log.Info().Str("runID", runID).Str("source", cfg.Name).Msg("Processing source")

	candidates, softFailures, err := o.deps.Extractor.ExtractSource(ctx, cfg, o.maxPages)
	if err != nil {
		stage := models.StageExtract
		var fetchErr *fetch.FetchError
		if errors.As(err, &fetchErr) {
			stage = models.StageFetch
		}
		outcome.failures = append(outcome.failures, models.FailureRecord{
			Source: cfg.Name,
			Stage:  stage,
			Reason: err.Error(),
		})
		if o.deps.Events != nil {
			o.deps.Events.SourceFailed(ctx, runID, cfg.Name, stage, err)
		}
		o.recordFailures(ctx, runID, outcome.failures)
		return outcome
	}

	for _, sf := range softFailures {
		outcome.failures = append(outcome.failures, models.FailureRecord{
			Source: cfg.Name,
			Stage:  models.StageExtract,
			Reason: sf.Reason,
		})
	}

	for _, candidate := range candidates {
		res, err := o.deps.Engine.Upsert(ctx, candidate)
		if err != nil {
			// The persistence collaborator itself is failing; this is
			// the one condition fatal to the whole run.
			outcome.fatal = err
			o.recordFailures(ctx, runID, outcome.failures)
			return outcome
		}

		switch res.Outcome {
		case models.OutcomeCreated:
			outcome.created++
		case models.OutcomeUpdated:
			outcome.updated++
		case models.OutcomeUnchanged:
			outcome.unchanged++
		case models.OutcomeSkipped:
			outcome.skipped++
			outcome.failures = append(outcome.failures, models.FailureRecord{
				Source: cfg.Name,
				Stage:  models.StageIngest,
				JobRef: candidate.Ref(),
				Reason: res.Reason,
			})
			continue
		}

		if dryRun || len(targets) == 0 || res.Outcome != models.OutcomeCreated {
			continue
		}
		for _, tr := range o.deps.Publisher.Publish(ctx, res.Job, targets) {
			if tr.Err == nil {
				continue
			}
			outcome.failures = append(outcome.failures, models.FailureRecord{
				Source:   cfg.Name,
				Stage:    models.StagePublish,
				JobRef:   res.Job.ExternalRef,
				TargetID: tr.TargetID,
				Reason:   tr.Err.Error(),
			})
		}
	}

	if o.deps.Events != nil {
		o.deps.Events.SourceComplete(ctx, runID, cfg.Name, outcome.created, outcome.updated, outcome.unchanged, outcome.skipped)
	}
	o.recordFailures(ctx, runID, outcome.failures)
	return outcome
}

func (o *Orchestrator) recordFailures(ctx context.Context, runID string, failures []models.FailureRecord) {
	for _, f := range failures {
		err := o.deps.Store.CreateRunFailure(ctx, repository.CreateRunFailureParams{
			ID:       uuid.Must(uuid.NewV7()).String(),
			RunID:    runID,
			Source:   f.Source,
			Stage:    f.Stage,
			JobRef:   optionalText(f.JobRef),
			TargetID: optionalText(f.TargetID),
			Reason:   f.Reason,
		})
		if err != nil {
			log.Warn().Err(err).Str("runID", runID).Msg("Error recording run failure")
		}
	}
}

func (o *Orchestrator) finalize(ctx context.Context, summary models.RunSummary, status string) models.RunSummary {
	summary.Status = status
	summary.FinishedAt = o.now().UTC()

	_, err := o.deps.Store.FinalizeRun(context.WithoutCancel(ctx), repository.FinalizeRunParams{
		ID:               summary.RunID,
		Status:           status,
		SourcesProcessed: int32(summary.SourcesProcessed),
		JobsCreated:      int32(summary.JobsCreated),
		JobsUpdated:      int32(summary.JobsUpdated),
		JobsUnchanged:    int32(summary.JobsUnchanged),
		JobsSkipped:      int32(summary.JobsSkipped),
		PublishFailures:  int32(summary.PublishFailures()),
	})
	if err != nil {
		log.Error().Err(err).Str("runID", summary.RunID).Msg("Error finalizing run record")
	}

	log.Info().
		Str("runID", summary.RunID).
		Str("status", status).
		Int("sources", summary.SourcesProcessed).
		Int("created", summary.JobsCreated).
		Int("updated", summary.JobsUpdated).
		Int("unchanged", summary.JobsUnchanged).
		Int("skipped", summary.JobsSkipped).
		Int("publishFailures", summary.PublishFailures()).
		Msg("Run finished")
	return summary
}

// notify hands the finalized summary to the notification collaborator. Fire
// and forget: a dead broker never fails a completed run.
func (o *Orchestrator) notify(ctx context.Context, summary models.RunSummary) {
	if o.deps.Events != nil {
		o.deps.Events.RunComplete(ctx, summary.RunID, summary.JobsCreated, summary.JobsUpdated, len(summary.Failures))
	}
	if o.deps.Broker == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		log.Error().Err(err).Str("runID", summary.RunID).Msg("Error encoding run summary")
		return
	}
	if err := o.deps.Broker.Publish(messaging.SubjectRunCompleted, data); err != nil {
		log.Warn().Err(err).Str("runID", summary.RunID).Msg("Error publishing run summary")
	}
}

// SweepExpired transitions active jobs whose deadline has passed to expired.
// Stateless and independent of any source.
func (o *Orchestrator) SweepExpired(ctx context.Context) (int64, error) {
	today := o.now().UTC().Truncate(24 * time.Hour)
	n, err := o.deps.Store.ExpireJobsPastDeadline(ctx, pgtype.Date{Time: today, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("failed to expire jobs: %w", err)
	}
	if n > 0 {
		log.Info().Int64("expired", n).Msg("Expiry sweep complete")
	}
	return n, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
