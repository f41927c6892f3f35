package publish

import (
	"encoding/json"
	"fmt"

	"github.com/counciljobs/ingestion-service/repository"
)

// Kind identifies the downstream sink family. Each kind carries its own
// transport and character limit.
type Kind string

const (
	KindPartnerAPI Kind = "partner-api"
	KindLinkedIn   Kind = "linkedin"
	KindFacebook   Kind = "facebook"
)

// charLimits are the per-kind plain-text description limits. Zero means the
// sink accepts the full HTML description.
var charLimits = map[Kind]int{
	KindPartnerAPI: 0,
	KindLinkedIn:   1300,
	KindFacebook:   5000,
}

// Credentials is the decoded credential_ref payload stored against a target.
// Which fields matter depends on the kind.
type Credentials struct {
	APIKey       string `json:"api_key,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`
	// AuthorURN is the posting organization for LinkedIn shares.
	AuthorURN string `json:"author_urn,omitempty"`
	// PageID is the Facebook page receiving feed posts.
	PageID string `json:"page_id,omitempty"`
	// LogoPath, when set on a partner-api target, switches the payload to
	// multipart with the file attached.
	LogoPath string `json:"logo_path,omitempty"`
}

// Target is a validated publish destination.
type Target struct {
	ID          string
	Name        string
	Kind        Kind
	Endpoint    string
	Credentials Credentials
}

// CharLimit returns the plain-text limit for the target's kind, zero for
// unlimited.
func (t Target) CharLimit() int {
	return charLimits[t.Kind]
}

func (t Target) needsToken() bool {
	return t.Kind == KindLinkedIn || t.Kind == KindFacebook
}

// ParseTarget validates and converts a stored publish_targets row.
func ParseTarget(row repository.PublishTarget) (Target, error) {
	kind := Kind(row.Kind)
	if _, ok := charLimits[kind]; !ok {
		return Target{}, fmt.Errorf("target %q has unknown kind %q", row.Name, row.Kind)
	}
	if row.Endpoint == "" {
		return Target{}, fmt.Errorf("target %q has no endpoint", row.Name)
	}

	var creds Credentials
	if len(row.Credentials) > 0 {
		if err := json.Unmarshal(row.Credentials, &creds); err != nil {
			return Target{}, fmt.Errorf("target %q has invalid credentials: %w", row.Name, err)
		}
	}

	target := Target{
		ID:          row.ID,
		Name:        row.Name,
		Kind:        kind,
		Endpoint:    row.Endpoint,
		Credentials: creds,
	}
	if target.needsToken() && creds.TokenURL == "" {
		return Target{}, fmt.Errorf("target %q requires a token_url credential", row.Name)
	}
	return target, nil
}
