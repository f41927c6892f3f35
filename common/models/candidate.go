package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// ApplyMethod is how applicants respond to a listing.
type ApplyMethod string

const (
	ApplyMethodURL   ApplyMethod = "url"
	ApplyMethodEmail ApplyMethod = "email"
)

// Location holds the address components extracted from a listing.
type Location struct {
	City     string `json:"city"`
	Region   string `json:"region"`
	Postcode string `json:"postcode"`
}

func (l Location) IsZero() bool {
	return l.City == "" && l.Region == "" && l.Postcode == ""
}

// Candidate is a freshly extracted, unpersisted listing awaiting dedup
// resolution. It lives only between extraction and upsert.
type Candidate struct {
	SourceID        string
	SourceName      string
	ExternalRef     string
	Title           string
	DescriptionHTML string
	DescriptionText string
	Deadline        mo.Option[time.Time]
	DeadlineRaw     string
	Location        Location
	ApplyMethod     ApplyMethod
	ApplyValue      string
	CompanyEmail    string
	CompanyName     string
	RawSnapshot     string
}

// Ref returns the stable identity of the candidate within its source: the
// site-provided external reference when one exists, otherwise a content hash
// over the fields that identify a vacancy. The hash keeps ingestion idempotent
// for sources that expose no native identifier.
func (c Candidate) Ref() string {
	if c.ExternalRef != "" {
		return c.ExternalRef
	}

	deadline := ""
	if d, ok := c.Deadline.Get(); ok {
		deadline = d.Format("2006-01-02")
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", c.Title, deadline, c.Location.City, c.Location.Region, c.Location.Postcode)
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// Validate performs the shape checks required before a candidate may be
// upserted. The returned string is a display-ready skip reason; empty means
// valid.
func (c Candidate) Validate() string {
	if strings.TrimSpace(c.Title) == "" {
		return "empty title"
	}
	if c.SourceID == "" {
		return "missing source id"
	}
	if c.DeadlineRaw != "" && c.Deadline.IsAbsent() {
		return fmt.Sprintf("unparsable deadline %q", c.DeadlineRaw)
	}
	switch c.ApplyMethod {
	case ApplyMethodURL, ApplyMethodEmail, "":
	default:
		return fmt.Sprintf("unknown apply method %q", c.ApplyMethod)
	}
	return ""
}
