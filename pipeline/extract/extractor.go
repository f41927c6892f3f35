package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdp "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/counciljobs/ingestion-service/common/models"
	"github.com/counciljobs/ingestion-service/pipeline/source"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"
)

// deadlineFormats are tried in order when a source does not configure its own
// deadline_format.
var deadlineFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// SoftFailure records a listing element that could not be extracted. The run
// continues; the failure surfaces in the run record.
type SoftFailure struct {
	Page   int
	Reason string
}

// PageFetcher is the slice of the fetcher the extractor needs for pagination.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, renderJS bool) (string, error)
}

// Extractor turns raw listing HTML into candidate job records by applying a
// source's declarative selectors. Extraction over the same HTML is
// deterministic: elements are visited in document order.
type Extractor struct {
	fetcher   PageFetcher
	converter *md.Converter
}

func NewExtractor(fetcher PageFetcher) *Extractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(mdp.GitHubFlavored())
	return &Extractor{fetcher: fetcher, converter: converter}
}

// ExtractSource fetches the source's listing page, extracts candidates, and
// follows the pagination rule until it yields no further page or maxPages is
// reached. The first page's fetch failure is returned as an error; later page
// failures stop pagination and are recorded as soft failures.
func (e *Extractor) ExtractSource(ctx context.Context, cfg source.SourceConfig, maxPages int) ([]models.Candidate, []SoftFailure, error) {
	if cfg.MaxPages > 0 && cfg.MaxPages < maxPages {
		maxPages = cfg.MaxPages
	}
	if maxPages < 1 {
		maxPages = 1
	}

	var candidates []models.Candidate
	var failures []SoftFailure

	pageURL := cfg.ListingURL
	for page := 1; page <= maxPages; page++ {
		select {
		case <-ctx.Done():
			return candidates, failures, ctx.Err()
		default:
		}

		html, err := e.fetcher.Fetch(ctx, pageURL, cfg.RenderJS)
		if err != nil {
			if page == 1 {
				return nil, failures, err
			}
			failures = append(failures, SoftFailure{Page: page, Reason: fmt.Sprintf("failed to fetch page %d: %v", page, err)})
			break
		}

		pageCandidates, pageFailures, err := e.ExtractPage(html, cfg, pageURL)
		if err != nil {
			return candidates, failures, err
		}
		for i := range pageFailures {
			pageFailures[i].Page = page
		}
		candidates = append(candidates, pageCandidates...)
		failures = append(failures, pageFailures...)

		// A %d pattern carries no in-page stop signal; a page with no
		// listing matches means the sequence ran out.
		if cfg.Pagination != nil && cfg.Pagination.Kind == source.PaginationURLPattern &&
			len(pageCandidates) == 0 && len(pageFailures) == 0 {
			break
		}

		next, ok := e.nextPageURL(html, cfg, pageURL, page)
		if !ok {
			break
		}
		pageURL = next
	}

	log.Debug().
		Str("source", cfg.Name).
		Int("candidates", len(candidates)).
		Int("softFailures", len(failures)).
		Msg("Extraction finished")
	return candidates, failures, nil
}

// ExtractPage applies the source's selectors to one page of HTML. Zero listing
// matches is not an error; the site may simply have no open vacancies.
func (e *Extractor) ExtractPage(html string, cfg source.SourceConfig, pageURL string) ([]models.Candidate, []SoftFailure, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse page html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse page url: %w", err)
	}

	var candidates []models.Candidate
	var failures []SoftFailure

	doc.Find(cfg.Selectors.Listing).Each(func(i int, sel *goquery.Selection) {
		candidate, reason := e.extractListing(sel, cfg, base)
		if reason != "" {
			failures = append(failures, SoftFailure{Reason: fmt.Sprintf("listing %d: %s", i+1, reason)})
			return
		}
		candidates = append(candidates, candidate)
	})

	return candidates, failures, nil
}

func (e *Extractor) extractListing(sel *goquery.Selection, cfg source.SourceConfig, base *url.URL) (models.Candidate, string) {
	selectors := cfg.Selectors

	title := selectValue(sel, selectors.Title)
	if title == "" {
		return models.Candidate{}, "missing title"
	}

	candidate := models.Candidate{
		SourceID:     cfg.ID,
		SourceName:   cfg.Name,
		ExternalRef:  selectValue(sel, selectors.ExternalRef),
		Title:        title,
		CompanyName:  selectValue(sel, selectors.CompanyName),
		CompanyEmail: selectValue(sel, selectors.CompanyEmail),
		Location: models.Location{
			City:     selectValue(sel, selectors.City),
			Region:   selectValue(sel, selectors.Region),
			Postcode: selectValue(sel, selectors.Postcode),
		},
	}

	candidate.DescriptionHTML = selectHTML(sel, selectors.Description)
	if candidate.DescriptionHTML != "" {
		text, err := e.converter.ConvertString(candidate.DescriptionHTML)
		if err != nil {
			log.Warn().Err(err).Str("source", cfg.Name).Msg("Error converting description to text")
			text = strings.TrimSpace(sel.Find(strings.SplitN(selectors.Description, "@", 2)[0]).Text())
		}
		candidate.DescriptionText = strings.TrimSpace(text)
	}

	if raw := selectValue(sel, selectors.Deadline); raw != "" {
		candidate.DeadlineRaw = raw
		if d, ok := parseDeadline(raw, selectors.DeadlineFormat); ok {
			candidate.Deadline = mo.Some(d)
		}
	}

	if applyURL := selectValue(sel, selectors.ApplyURL); applyURL != "" {
		candidate.ApplyMethod = models.ApplyMethodURL
		candidate.ApplyValue = resolveURL(base, applyURL)
	} else if applyEmail := selectValue(sel, selectors.ApplyEmail); applyEmail != "" {
		candidate.ApplyMethod = models.ApplyMethodEmail
		candidate.ApplyValue = strings.TrimPrefix(applyEmail, "mailto:")
	}

	if candidate.ExternalRef != "" && strings.HasPrefix(selectors.ExternalRef, "a") {
		// hrefs used as refs are normalized to absolute form so the natural
		// key is stable across relative and absolute markup.
		candidate.ExternalRef = resolveURL(base, candidate.ExternalRef)
	}

	if snapshot, err := goquery.OuterHtml(sel); err == nil {
		candidate.RawSnapshot = snapshot
	}

	return candidate, ""
}

func (e *Extractor) nextPageURL(html string, cfg source.SourceConfig, pageURL string, page int) (string, bool) {
	rule := cfg.Pagination
	if rule == nil {
		return "", false
	}

	switch rule.Kind {
	case source.PaginationURLPattern:
		return fmt.Sprintf(rule.Value, page+1), true
	default:
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return "", false
		}
		next := selectValue(doc.Selection, rule.Value)
		if next == "" {
			return "", false
		}
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", false
		}
		return resolveURL(base, next), true
	}
}

// selectValue resolves a "selector" or "selector@attr" rule relative to sel
// and returns the trimmed text or attribute value. An empty rule yields "".
func selectValue(sel *goquery.Selection, rule string) string {
	if rule == "" {
		return ""
	}

	selector, attr := splitRule(rule)
	target := sel
	if selector != "" && selector != "." {
		target = sel.Find(selector)
	}
	if target.Length() == 0 {
		return ""
	}

	if attr != "" {
		v, _ := target.First().Attr(attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(target.First().Text())
}

// selectHTML returns the inner HTML of the first match, preserving markup for
// sinks that accept it.
func selectHTML(sel *goquery.Selection, rule string) string {
	if rule == "" {
		return ""
	}
	selector, _ := splitRule(rule)
	target := sel
	if selector != "" && selector != "." {
		target = sel.Find(selector)
	}
	if target.Length() == 0 {
		return ""
	}
	html, err := target.First().Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

func splitRule(rule string) (selector, attr string) {
	parts := strings.SplitN(rule, "@", 2)
	selector = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		attr = strings.TrimSpace(parts[1])
	}
	return selector, attr
}

func parseDeadline(raw, format string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	formats := deadlineFormats
	if format != "" {
		formats = []string{format}
	}
	for _, f := range formats {
		if d, err := time.Parse(f, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
