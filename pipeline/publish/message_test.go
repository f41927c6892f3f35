package publish

import (
	"strings"
	"testing"

	"github.com/counciljobs/ingestion-service/repository"
)

func TestTruncateExactLimit(t *testing.T) {
	text := strings.Repeat("a", 5000)

	got := Truncate(text, 1300)
	runes := []rune(got)
	if len(runes) != 1301 {
		t.Fatalf("expected 1300 characters plus the ellipsis marker, got %d runes", len(runes))
	}
	if string(runes[:1300]) != text[:1300] {
		t.Error("truncated prefix must match the original text")
	}
	if string(runes[1300]) != ellipsisMarker {
		t.Errorf("expected ellipsis marker at the end, got %q", string(runes[1300]))
	}
}

func TestTruncateUnderLimitUntouched(t *testing.T) {
	text := "short description"
	if got := Truncate(text, 1300); got != text {
		t.Errorf("text under the limit must pass through, got %q", got)
	}
	if got := Truncate(text, len([]rune(text))); got != text {
		t.Errorf("text exactly at the limit must pass through, got %q", got)
	}
}

func TestTruncateZeroMeansUnlimited(t *testing.T) {
	text := strings.Repeat("b", 10000)
	if got := Truncate(text, 0); got != text {
		t.Error("zero limit must not truncate")
	}
}

func TestTruncateMultibyte(t *testing.T) {
	text := strings.Repeat("järnväg ", 400)
	got := Truncate(text, 100)
	if !strings.HasPrefix(text, strings.TrimSuffix(got, ellipsisMarker)) {
		t.Error("truncation must never split a multi-byte character")
	}
	if len([]rune(got)) != 101 {
		t.Errorf("expected 100 runes plus marker, got %d", len([]rune(got)))
	}
}

func TestBuildSocialMessage(t *testing.T) {
	job := repository.Job{
		Title:           "Senior Planner",
		DescriptionText: strings.Repeat("x", 2000),
		Slug:            "senior-planner-ab12cd34",
	}
	target := Target{Kind: KindLinkedIn}

	msg := buildSocialMessage(job, target, "https://counciljobs.example.org/")
	if !strings.HasPrefix(msg, "Senior Planner\n\n") {
		t.Errorf("message must open with the title, got %q", msg[:40])
	}
	if !strings.Contains(msg, ellipsisMarker) {
		t.Error("long description must be truncated with the marker")
	}
	if !strings.HasSuffix(msg, "https://counciljobs.example.org/jobs/senior-planner-ab12cd34") {
		t.Errorf("message must end with the canonical link, got %q", msg)
	}
}

func TestCanonicalURL(t *testing.T) {
	job := repository.Job{Slug: "refuse-loader-99aa88bb"}
	got := CanonicalURL("https://counciljobs.example.org", job)
	want := "https://counciljobs.example.org/jobs/refuse-loader-99aa88bb"
	if got != want {
		t.Errorf("CanonicalURL = %q, want %q", got, want)
	}
}
