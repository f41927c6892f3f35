package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/counciljobs/ingestion-service/common/config"
)

func testConfig() config.FetcherConfig {
	return config.FetcherConfig{
		RequestTimeout: 5 * time.Second,
		UserAgent:      "ingestion-service-test/1.0",
	}
}

func TestFetchStatic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "ingestion-service-test/1.0" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Write([]byte("<html><body><h1>Vacancies</h1></body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(testConfig())
	body, err := f.Fetch(context.Background(), srv.URL, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "Vacancies") {
		t.Errorf("body missing expected content, got %q", body)
	}
}

func TestFetchStaticFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(testConfig())
	body, err := f.Fetch(context.Background(), srv.URL, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "landed" {
		t.Errorf("expected redirect target body, got %q", body)
	}
}

func TestFetchStaticNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewFetcher(testConfig())
	_, err := f.Fetch(context.Background(), srv.URL, false)
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.URL != srv.URL {
		t.Errorf("expected URL %q in error, got %q", srv.URL, fe.URL)
	}
}

func TestFetchStaticContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewFetcher(testConfig())
	_, err := f.Fetch(ctx, srv.URL, false)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
}

func TestDocumentStatusError(t *testing.T) {
	for _, status := range []int{200, 204, 304} {
		if err := documentStatusError("https://jobs.example.gov.uk", status); err != nil {
			t.Errorf("status %d should not be an error, got %v", status, err)
		}
	}

	for _, status := range []int{404, 500, 503} {
		err := documentStatusError("https://jobs.example.gov.uk", status)
		if err == nil {
			t.Errorf("status %d should be rejected", status)
			continue
		}
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Errorf("status %d: expected *FetchError, got %T", status, err)
			continue
		}
		if fe.URL != "https://jobs.example.gov.uk" {
			t.Errorf("error must name the fetched url, got %q", fe.URL)
		}
	}
}

func TestCloseWithoutConnect(t *testing.T) {
	f := NewFetcher(testConfig())
	if err := f.Close(); err != nil {
		t.Fatalf("close without browser should be a no-op, got %v", err)
	}
}
