package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/counciljobs/ingestion-service/repository"
	"github.com/jackc/pgx/v5"
)

// ErrSourceNotFound is returned by Resolve for an unknown or inactive source.
var ErrSourceNotFound = errors.New("source not found")

type sourceStore interface {
	GetActiveJobSources(ctx context.Context) ([]repository.JobSource, error)
	GetJobSourceByName(ctx context.Context, name string) (repository.JobSource, error)
}

// Registry resolves source names to validated configurations. It decouples the
// extractor from per-site literals: sites are rows, not code.
type Registry struct {
	store sourceStore
}

func NewRegistry(store sourceStore) *Registry {
	return &Registry{store: store}
}

// Resolve returns the configuration for one source by name.
func (r *Registry) Resolve(ctx context.Context, name string) (SourceConfig, error) {
	row, err := r.store.GetJobSourceByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SourceConfig{}, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
		}
		return SourceConfig{}, fmt.Errorf("failed to load source %s: %w", name, err)
	}
	return ConfigFromRow(row)
}

// Active returns every active source in configuration order. Rows that fail
// validation are returned separately so a single malformed source never hides
// the rest.
func (r *Registry) Active(ctx context.Context) ([]SourceConfig, []error, error) {
	rows, err := r.store.GetActiveJobSources(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load active sources: %w", err)
	}

	configs := make([]SourceConfig, 0, len(rows))
	var invalid []error
	for _, row := range rows {
		cfg, err := ConfigFromRow(row)
		if err != nil {
			invalid = append(invalid, err)
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, invalid, nil
}
