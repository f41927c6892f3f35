package publish

import (
	"fmt"
	"strings"

	"github.com/counciljobs/ingestion-service/repository"
)

// ellipsisMarker is appended after a truncated description so readers know
// the text continues at the canonical listing.
const ellipsisMarker = "…"

// Truncate cuts text to exactly limit characters (runes, so multi-byte text
// never splits) and appends the ellipsis marker. Text at or under the limit
// is returned untouched. A limit of zero means unlimited.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + ellipsisMarker
}

// CanonicalURL builds the stable public link for a job from its slug.
func CanonicalURL(baseURL string, job repository.Job) string {
	return strings.TrimRight(baseURL, "/") + "/jobs/" + job.Slug
}

// buildSocialMessage renders the plain-text post for character-limited sinks:
// title, truncated description, then the canonical listing link.
func buildSocialMessage(job repository.Job, target Target, baseURL string) string {
	var b strings.Builder
	b.WriteString(job.Title)
	if job.DescriptionText != "" {
		b.WriteString("\n\n")
		b.WriteString(Truncate(job.DescriptionText, target.CharLimit()))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "View the full listing: %s", CanonicalURL(baseURL, job))
	return b.String()
}
