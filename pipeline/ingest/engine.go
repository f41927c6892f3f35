package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/counciljobs/ingestion-service/common/models"
	"github.com/counciljobs/ingestion-service/common/storage"
	"github.com/counciljobs/ingestion-service/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

const lockStripes = 64

// Result is the dedup-resolved outcome of one candidate. Job carries the
// persisted record for Created/Updated/Unchanged so publish always observes a
// stored row, never a transient candidate.
type Result struct {
	Outcome models.UpsertOutcome
	Reason  string
	Job     repository.Job
}

type jobStore interface {
	GetJobByNaturalKey(ctx context.Context, arg repository.GetJobByNaturalKeyParams) (repository.Job, error)
	CreateJob(ctx context.Context, arg repository.CreateJobParams) (repository.Job, error)
	UpdateJob(ctx context.Context, arg repository.UpdateJobParams) (repository.Job, error)
	TouchJobLastSeen(ctx context.Context, arg repository.TouchJobLastSeenParams) error
	GetCompanyByContactEmail(ctx context.Context, contactEmail string) (repository.Company, error)
	GetCompanyByName(ctx context.Context, name string) (repository.Company, error)
}

// Engine resolves candidates against the job store with idempotent,
// per-key-serialized upserts. It never deletes; expiry is a separate sweep.
type Engine struct {
	store     jobStore
	snapshots storage.SnapshotStore
	bucket    string
	now       func() time.Time
	locks     [lockStripes]sync.Mutex
}

type EngineOption func(*Engine)

// WithSnapshots enables audit uploads of the raw listing fragment for every
// created or updated job.
func WithSnapshots(store storage.SnapshotStore, bucket string) EngineOption {
	return func(e *Engine) {
		e.snapshots = store
		e.bucket = bucket
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(store jobStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Upsert resolves one candidate. Overlapping runs touching the same natural
// key are serialized on a striped lock within this process; races with other
// instances surface as unique violations and are reconciled against the
// winning row. Store failures other than not-found are returned as errors; the
// orchestrator treats those as fatal because the persistence collaborator
// itself is unavailable.
func (e *Engine) Upsert(ctx context.Context, candidate models.Candidate) (Result, error) {
	if reason := candidate.Validate(); reason != "" {
		return Result{Outcome: models.OutcomeSkipped, Reason: reason}, nil
	}

	ref := candidate.Ref()
	lock := &e.locks[stripeFor(candidate.SourceID, ref)]
	lock.Lock()
	defer lock.Unlock()

	now := e.now().UTC()

	existing, err := e.store.GetJobByNaturalKey(ctx, repository.GetJobByNaturalKeyParams{
		SourceID:    candidate.SourceID,
		ExternalRef: ref,
	})
	switch {
	case err == nil:
		return e.reconcile(ctx, existing, candidate, now)
	case errors.Is(err, pgx.ErrNoRows):
		return e.create(ctx, candidate, ref, now)
	default:
		return Result{}, fmt.Errorf("failed to look up job %s/%s: %w", candidate.SourceID, ref, err)
	}
}

func (e *Engine) create(ctx context.Context, candidate models.Candidate, ref string, now time.Time) (Result, error) {
	companyID := e.resolveCompany(ctx, candidate)

	params := repository.CreateJobParams{
		ID:               uuid.Must(uuid.NewV7()).String(),
		SourceID:         candidate.SourceID,
		ExternalRef:      ref,
		CompanyID:        companyID,
		Title:            candidate.Title,
		Description:      candidate.DescriptionHTML,
		DescriptionText:  candidate.DescriptionText,
		Deadline:         deadlineOf(candidate),
		LocationCity:     textOf(candidate.Location.City),
		LocationRegion:   textOf(candidate.Location.Region),
		LocationPostcode: textOf(candidate.Location.Postcode),
		ApplyMethod:      string(candidate.ApplyMethod),
		ApplyValue:       candidate.ApplyValue,
		Slug:             buildSlug(candidate.Title, candidate.SourceID, ref),
		Status:           "active",
		SnapshotPath:     e.storeSnapshot(ctx, candidate, ref),
		FirstSeenAt:      now,
		LastSeenAt:       now,
	}

	job, err := e.store.CreateJob(ctx, params)
	if err != nil {
		// The striped lock only serializes writers in this process. Another
		// instance can commit the same natural key between our lookup and
		// our insert; the unique constraint turns that into a 23505, and the
		// winner's row is reconciled like any re-observation.
		if isUniqueViolation(err) {
			existing, lookupErr := e.store.GetJobByNaturalKey(ctx, repository.GetJobByNaturalKeyParams{
				SourceID:    candidate.SourceID,
				ExternalRef: ref,
			})
			if lookupErr != nil {
				return Result{}, fmt.Errorf("failed to resolve insert race for job %s/%s: %w", candidate.SourceID, ref, lookupErr)
			}
			return e.reconcile(ctx, existing, candidate, now)
		}
		return Result{}, fmt.Errorf("failed to create job %s/%s: %w", candidate.SourceID, ref, err)
	}

	log.Info().Str("source", candidate.SourceName).Str("ref", ref).Str("jobID", job.ID).Msg("Job created")
	return Result{Outcome: models.OutcomeCreated, Job: job}, nil
}

func (e *Engine) reconcile(ctx context.Context, existing repository.Job, candidate models.Candidate, now time.Time) (Result, error) {
	companyID := existing.CompanyID
	if !companyID.Valid {
		companyID = e.resolveCompany(ctx, candidate)
	}

	if unchanged(existing, candidate, companyID) {
		err := e.store.TouchJobLastSeen(ctx, repository.TouchJobLastSeenParams{
			ID:         existing.ID,
			LastSeenAt: now,
		})
		if err != nil {
			return Result{}, fmt.Errorf("failed to touch job %s: %w", existing.ID, err)
		}
		existing.LastSeenAt = now
		return Result{Outcome: models.OutcomeUnchanged, Job: existing}, nil
	}

	snapshotPath := existing.SnapshotPath
	if p := e.storeSnapshot(ctx, candidate, existing.ExternalRef); p.Valid {
		snapshotPath = p
	}

	// A re-observed listing always comes back active, even if a previous
	// sweep expired it; the site is advertising it again.
	job, err := e.store.UpdateJob(ctx, repository.UpdateJobParams{
		ID:               existing.ID,
		CompanyID:        companyID,
		Title:            candidate.Title,
		Description:      candidate.DescriptionHTML,
		DescriptionText:  candidate.DescriptionText,
		Deadline:         deadlineOf(candidate),
		LocationCity:     textOf(candidate.Location.City),
		LocationRegion:   textOf(candidate.Location.Region),
		LocationPostcode: textOf(candidate.Location.Postcode),
		ApplyMethod:      string(candidate.ApplyMethod),
		ApplyValue:       candidate.ApplyValue,
		SnapshotPath:     snapshotPath,
		Status:           "active",
		LastSeenAt:       now,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to update job %s: %w", existing.ID, err)
	}

	log.Info().Str("source", candidate.SourceName).Str("ref", existing.ExternalRef).Str("jobID", job.ID).Msg("Job updated")
	return Result{Outcome: models.OutcomeUpdated, Job: job}, nil
}

// resolveCompany associates the candidate with an internal employer record by
// contact email first, then by name. No match is not an error.
func (e *Engine) resolveCompany(ctx context.Context, candidate models.Candidate) pgtype.Text {
	if candidate.CompanyEmail != "" {
		company, err := e.store.GetCompanyByContactEmail(ctx, candidate.CompanyEmail)
		if err == nil {
			return pgtype.Text{String: company.ID, Valid: true}
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Str("email", candidate.CompanyEmail).Msg("Error looking up company by email")
		}
	}
	if candidate.CompanyName != "" {
		company, err := e.store.GetCompanyByName(ctx, candidate.CompanyName)
		if err == nil {
			return pgtype.Text{String: company.ID, Valid: true}
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Str("name", candidate.CompanyName).Msg("Error looking up company by name")
		}
	}
	return pgtype.Text{}
}

func (e *Engine) storeSnapshot(ctx context.Context, candidate models.Candidate, ref string) pgtype.Text {
	if e.snapshots == nil || candidate.RawSnapshot == "" {
		return pgtype.Text{}
	}

	object := fmt.Sprintf("snapshots/%s/%s.html", candidate.SourceName, shortHash(ref))
	path, err := e.snapshots.Upload(ctx, e.bucket, object, []byte(candidate.RawSnapshot), "text/html")
	if err != nil {
		log.Warn().Err(err).Str("object", object).Msg("Error uploading snapshot")
		return pgtype.Text{}
	}
	return pgtype.Text{String: path, Valid: true}
}

// unchanged reports whether every mutable field of the stored row already
// matches the candidate.
func unchanged(existing repository.Job, candidate models.Candidate, companyID pgtype.Text) bool {
	if existing.Title != candidate.Title ||
		existing.Description != candidate.DescriptionHTML ||
		existing.DescriptionText != candidate.DescriptionText ||
		existing.ApplyMethod != string(candidate.ApplyMethod) ||
		existing.ApplyValue != candidate.ApplyValue ||
		existing.Status != "active" {
		return false
	}
	if existing.CompanyID != companyID {
		return false
	}
	if existing.LocationCity.String != candidate.Location.City ||
		existing.LocationRegion.String != candidate.Location.Region ||
		existing.LocationPostcode.String != candidate.Location.Postcode {
		return false
	}

	candidateDeadline := deadlineOf(candidate)
	if existing.Deadline.Valid != candidateDeadline.Valid {
		return false
	}
	if existing.Deadline.Valid && !existing.Deadline.Time.Equal(candidateDeadline.Time) {
		return false
	}
	return true
}

func deadlineOf(candidate models.Candidate) pgtype.Date {
	if d, ok := candidate.Deadline.Get(); ok {
		return pgtype.Date{Time: d, Valid: true}
	}
	return pgtype.Date{}
}

func textOf(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func stripeFor(sourceID, ref string) int {
	h := fnv.New32a()
	h.Write([]byte(sourceID))
	h.Write([]byte{'|'})
	h.Write([]byte(ref))
	return int(h.Sum32() % lockStripes)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// buildSlug derives the stable, URL-safe identifier used for canonical
// listing links. Assigned once at creation and never rewritten.
func buildSlug(title, sourceID, ref string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "job"
	}
	return slug + "-" + shortHash(sourceID+"|"+ref)[:8]
}
