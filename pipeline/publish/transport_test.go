package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/counciljobs/ingestion-service/repository"
)

func TestFacebookTransportSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/page-77/feed") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("access_token") != "fb-token" {
			t.Errorf("missing access token, got %q", r.PostForm.Get("access_token"))
		}
		if !strings.Contains(r.PostForm.Get("message"), "Senior Planner") {
			t.Errorf("message missing title")
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "77_123"})
	}))
	defer srv.Close()

	target := Target{
		ID:          "fb-1",
		Name:        "facebook-main",
		Kind:        KindFacebook,
		Endpoint:    srv.URL,
		Credentials: Credentials{PageID: "page-77"},
	}

	tr := &facebookTransport{client: srv.Client()}
	if err := tr.send(context.Background(), target, publishedJob(), "fb-token", "https://counciljobs.example.org"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFacebookTransportInvalidTokenIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Error validating access token", "code": 190},
		})
	}))
	defer srv.Close()

	target := Target{Name: "facebook-main", Kind: KindFacebook, Endpoint: srv.URL, Credentials: Credentials{PageID: "p"}}

	err := (&facebookTransport{client: srv.Client()}).send(context.Background(), target, publishedJob(), "stale", "https://counciljobs.example.org")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError for Graph code 190, got %v", err)
	}
}

func TestPartnerTransportJSONPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON payload, got %q", ct)
		}
		if key := r.Header.Get("X-Api-Key"); key != "k-123" {
			t.Errorf("expected api key header, got %q", key)
		}
		var payload partnerPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload.Title != "Senior Planner" {
			t.Errorf("unexpected title %q", payload.Title)
		}
		if payload.CanonicalURL != "https://counciljobs.example.org/jobs/senior-planner-ab12cd34" {
			t.Errorf("unexpected canonical url %q", payload.CanonicalURL)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := Target{Name: "partner", Kind: KindPartnerAPI, Endpoint: srv.URL, Credentials: Credentials{APIKey: "k-123"}}
	if err := (&partnerTransport{client: srv.Client()}).send(context.Background(), target, publishedJob(), "", "https://counciljobs.example.org"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPartnerTransportMultipartWithLogo(t *testing.T) {
	logoPath := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(logoPath, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("expected multipart body: %v", err)
		}
		var payload partnerPayload
		if err := json.Unmarshal([]byte(r.PostFormValue("job")), &payload); err != nil {
			t.Fatalf("job field not valid JSON: %v", err)
		}
		file, header, err := r.FormFile("logo")
		if err != nil {
			t.Fatalf("missing logo part: %v", err)
		}
		defer file.Close()
		if header.Filename != "logo.png" {
			t.Errorf("unexpected logo filename %q", header.Filename)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := Target{Name: "partner", Kind: KindPartnerAPI, Endpoint: srv.URL, Credentials: Credentials{LogoPath: logoPath}}
	if err := (&partnerTransport{client: srv.Client()}).send(context.Background(), target, publishedJob(), "", "https://counciljobs.example.org"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		creds   string
		wantErr bool
	}{
		{"partner", "partner-api", `{"api_key":"k"}`, false},
		{"linkedin with token url", "linkedin", `{"token_url":"https://t","author_urn":"urn:li:organization:1"}`, false},
		{"linkedin without token url", "linkedin", `{}`, true},
		{"unknown kind", "smoke-signal", `{}`, true},
		{"bad credentials json", "partner-api", `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := repository.PublishTarget{
				ID:          "t-1",
				Name:        tt.name,
				Kind:        tt.kind,
				Endpoint:    "https://sink.example.org",
				Credentials: []byte(tt.creds),
			}
			_, err := ParseTarget(row)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTarget error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
