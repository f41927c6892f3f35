package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/counciljobs/ingestion-service/repository"
)

// FieldSelectors maps logical job fields to the CSS selectors that locate them
// inside one listing element. A selector may carry an attribute suffix
// ("a.apply@href") to read an attribute instead of the element text.
type FieldSelectors struct {
	// Listing locates each vacancy element within the page. Required.
	Listing string `json:"listing"`
	// Title is resolved relative to the listing element. Required.
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	ExternalRef    string `json:"external_ref,omitempty"`
	Deadline       string `json:"deadline,omitempty"`
	DeadlineFormat string `json:"deadline_format,omitempty"`
	City           string `json:"city,omitempty"`
	Region         string `json:"region,omitempty"`
	Postcode       string `json:"postcode,omitempty"`
	ApplyURL       string `json:"apply_url,omitempty"`
	ApplyEmail     string `json:"apply_email,omitempty"`
	CompanyName    string `json:"company_name,omitempty"`
	CompanyEmail   string `json:"company_email,omitempty"`
}

// PaginationKind distinguishes the two rule shapes operators may configure.
type PaginationKind string

const (
	// PaginationNextLink follows the href of the element matched by Value.
	PaginationNextLink PaginationKind = "next_link"
	// PaginationURLPattern formats Value with a 1-based page number.
	PaginationURLPattern PaginationKind = "url_pattern"
)

type PaginationRule struct {
	Kind  PaginationKind
	Value string
}

// ParsePaginationRule interprets a configured rule string. A rule containing a
// %d verb is a URL pattern; anything else is treated as a next-link selector.
func ParsePaginationRule(rule string) *PaginationRule {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil
	}
	if strings.Contains(rule, "%d") {
		return &PaginationRule{Kind: PaginationURLPattern, Value: rule}
	}
	return &PaginationRule{Kind: PaginationNextLink, Value: rule}
}

// SourceConfig is the resolved, validated configuration for one external
// listing site. Immutable for the duration of a run.
type SourceConfig struct {
	ID         string
	Name       string
	ListingURL string
	RenderJS   bool
	Selectors  FieldSelectors
	Pagination *PaginationRule
	MaxPages   int
	Position   int
	Active     bool
}

// ConfigurationError reports a malformed source configuration. It is fatal to
// that source's processing only.
type ConfigurationError struct {
	Source string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source %q misconfigured: %s", e.Source, e.Reason)
}

// ConfigFromRow validates and converts a stored job_sources row into a
// SourceConfig usable by the extractor.
func ConfigFromRow(row repository.JobSource) (SourceConfig, error) {
	var selectors FieldSelectors
	if err := json.Unmarshal(row.FieldSelectors, &selectors); err != nil {
		return SourceConfig{}, &ConfigurationError{Source: row.Name, Reason: fmt.Sprintf("invalid field_selectors: %v", err)}
	}
	if strings.TrimSpace(selectors.Listing) == "" {
		return SourceConfig{}, &ConfigurationError{Source: row.Name, Reason: "field_selectors.listing is required"}
	}
	if strings.TrimSpace(selectors.Title) == "" {
		return SourceConfig{}, &ConfigurationError{Source: row.Name, Reason: "field_selectors.title is required"}
	}
	if strings.TrimSpace(row.ListingUrl) == "" {
		return SourceConfig{}, &ConfigurationError{Source: row.Name, Reason: "listing_url is required"}
	}

	return SourceConfig{
		ID:         row.ID,
		Name:       row.Name,
		ListingURL: row.ListingUrl,
		RenderJS:   row.RequiresJsRender,
		Selectors:  selectors,
		Pagination: ParsePaginationRule(row.PaginationRule.String),
		MaxPages:   int(row.MaxPages),
		Position:   int(row.Position),
		Active:     row.Active,
	}, nil
}
