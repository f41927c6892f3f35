package publish

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/counciljobs/ingestion-service/repository"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// TargetResult is the outcome of one target's delivery attempt chain. Err is
// nil on success.
type TargetResult struct {
	TargetID   string
	TargetName string
	Attempts   int
	Err        error
}

type targetStore interface {
	GetActivePublishTargets(ctx context.Context) ([]repository.PublishTarget, error)
}

// Publisher fans one persisted job out to every active target. Targets are
// independent: deliveries run concurrently and one failure never blocks
// another. Publishing never mutates the job record.
type Publisher struct {
	store   targetStore
	tokens  *TokenCache
	client  *http.Client
	baseURL string
	retries int
}

func NewPublisher(store targetStore, tokens *TokenCache, baseURL string, retries int) *Publisher {
	if retries < 1 {
		retries = 1
	}
	return &Publisher{
		store:   store,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		retries: retries,
	}
}

// ActiveTargets loads and validates the configured targets. Malformed rows
// are dropped with a log line rather than failing the run.
func (p *Publisher) ActiveTargets(ctx context.Context) ([]Target, error) {
	rows, err := p.store.GetActivePublishTargets(ctx)
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(rows, func(row repository.PublishTarget, _ int) (Target, bool) {
		target, err := ParseTarget(row)
		if err != nil {
			log.Warn().Err(err).Str("target", row.Name).Msg("Skipping malformed publish target")
			return Target{}, false
		}
		return target, true
	}), nil
}

// Publish delivers job to every target and returns one result per target, in
// the same order.
func (p *Publisher) Publish(ctx context.Context, job repository.Job, targets []Target) []TargetResult {
	results := make([]TargetResult, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target Target) {
			defer wg.Done()
			results[i] = p.publishOne(ctx, job, target)
		}(i, target)
	}
	wg.Wait()

	return results
}

// publishOne runs the bounded retry chain for a single target. An auth
// rejection forces a token refresh before the next attempt; other transport
// failures retry as-is.
func (p *Publisher) publishOne(ctx context.Context, job repository.Job, target Target) TargetResult {
	result := TargetResult{TargetID: target.ID, TargetName: target.Name}
	sender := transportFor(target.Kind, p.client)

	forceRefresh := false
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		token := ""
		if target.needsToken() {
			var err error
			if forceRefresh {
				token, err = p.tokens.ForceRefresh(ctx, target)
				forceRefresh = false
			} else {
				token, err = p.tokens.Token(ctx, target)
			}
			if err != nil {
				lastErr = err
				continue
			}
		}

		err := sender.send(ctx, target, job, token, p.baseURL)
		if err == nil {
			log.Info().Str("target", target.Name).Str("jobID", job.ID).Int("attempt", attempt).Msg("Job published")
			return result
		}
		lastErr = err

		var authErr *AuthError
		if errors.As(err, &authErr) {
			forceRefresh = true
		}
		log.Warn().Err(err).Str("target", target.Name).Str("jobID", job.ID).Int("attempt", attempt).Msg("Publish attempt failed")
	}

	result.Err = lastErr
	return result
}
