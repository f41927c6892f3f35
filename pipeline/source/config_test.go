package source

import (
	"context"
	"errors"
	"testing"

	"github.com/counciljobs/ingestion-service/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func validRow() repository.JobSource {
	return repository.JobSource{
		ID:         "src-1",
		Name:       "northshire",
		ListingUrl: "https://jobs.northshire.gov.uk/vacancies",
		FieldSelectors: []byte(`{
			"listing": "div.vacancy",
			"title": "h3 a",
			"description": "div.summary",
			"external_ref": "h3 a@href",
			"deadline": "span.closing-date",
			"deadline_format": "02/01/2006"
		}`),
		PaginationRule: pgtype.Text{String: "a.pagination-next@href", Valid: true},
		MaxPages:       5,
		Position:       1,
		Active:         true,
	}
}

func TestConfigFromRow(t *testing.T) {
	cfg, err := ConfigFromRow(validRow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "northshire" {
		t.Errorf("expected name northshire, got %q", cfg.Name)
	}
	if cfg.Selectors.Title != "h3 a" {
		t.Errorf("unexpected title selector %q", cfg.Selectors.Title)
	}
	if cfg.Pagination == nil || cfg.Pagination.Kind != PaginationNextLink {
		t.Errorf("expected next-link pagination, got %+v", cfg.Pagination)
	}
	if cfg.MaxPages != 5 {
		t.Errorf("expected max pages 5, got %d", cfg.MaxPages)
	}
}

func TestConfigFromRowInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*repository.JobSource)
	}{
		{"malformed json", func(r *repository.JobSource) { r.FieldSelectors = []byte(`{`) }},
		{"missing listing selector", func(r *repository.JobSource) { r.FieldSelectors = []byte(`{"title":"h3"}`) }},
		{"missing title selector", func(r *repository.JobSource) { r.FieldSelectors = []byte(`{"listing":"div"}`) }},
		{"missing listing url", func(r *repository.JobSource) { r.ListingUrl = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(&row)

			_, err := ConfigFromRow(row)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigurationError, got %v", err)
			}
			if ce.Source != row.Name {
				t.Errorf("expected error to name source %q, got %q", row.Name, ce.Source)
			}
		})
	}
}

func TestParsePaginationRule(t *testing.T) {
	tests := []struct {
		rule string
		want *PaginationRule
	}{
		{"", nil},
		{"   ", nil},
		{"a.next", &PaginationRule{Kind: PaginationNextLink, Value: "a.next"}},
		{"https://example.org/jobs?page=%d", &PaginationRule{Kind: PaginationURLPattern, Value: "https://example.org/jobs?page=%d"}},
	}

	for _, tt := range tests {
		got := ParsePaginationRule(tt.rule)
		if tt.want == nil {
			if got != nil {
				t.Errorf("ParsePaginationRule(%q) = %+v, want nil", tt.rule, got)
			}
			continue
		}
		if got == nil || *got != *tt.want {
			t.Errorf("ParsePaginationRule(%q) = %+v, want %+v", tt.rule, got, tt.want)
		}
	}
}

type fakeSourceStore struct {
	rows map[string]repository.JobSource
}

func (f *fakeSourceStore) GetActiveJobSources(ctx context.Context) ([]repository.JobSource, error) {
	out := []repository.JobSource{}
	for _, r := range f.rows {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSourceStore) GetJobSourceByName(ctx context.Context, name string) (repository.JobSource, error) {
	r, ok := f.rows[name]
	if !ok {
		return repository.JobSource{}, pgx.ErrNoRows
	}
	return r, nil
}

func TestRegistryResolve(t *testing.T) {
	row := validRow()
	reg := NewRegistry(&fakeSourceStore{rows: map[string]repository.JobSource{row.Name: row}})

	cfg, err := reg.Resolve(context.Background(), "northshire")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ID != "src-1" {
		t.Errorf("unexpected config id %q", cfg.ID)
	}

	_, err = reg.Resolve(context.Background(), "nowhere")
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestRegistryActiveSkipsInvalid(t *testing.T) {
	good := validRow()
	bad := validRow()
	bad.Name = "broken"
	bad.FieldSelectors = []byte(`{}`)

	reg := NewRegistry(&fakeSourceStore{rows: map[string]repository.JobSource{
		good.Name: good,
		bad.Name:  bad,
	}})

	configs, invalid, err := reg.Active(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 1 || configs[0].Name != "northshire" {
		t.Errorf("expected only the valid source, got %+v", configs)
	}
	if len(invalid) != 1 {
		t.Fatalf("expected one invalid source, got %d", len(invalid))
	}
	var ce *ConfigurationError
	if !errors.As(invalid[0], &ce) || ce.Source != "broken" {
		t.Errorf("expected configuration error for broken source, got %v", invalid[0])
	}
}
