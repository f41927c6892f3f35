package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/counciljobs/ingestion-service/repository"
)

type memTokenStore struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{m: map[string]string{}}
}

func (s *memTokenStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return v, nil
}

func (s *memTokenStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = fmt.Sprint(value)
	return nil
}

func (s *memTokenStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

type staticTargetStore struct {
	rows []repository.PublishTarget
}

func (s *staticTargetStore) GetActivePublishTargets(ctx context.Context) ([]repository.PublishTarget, error) {
	return s.rows, nil
}

func publishedJob() repository.Job {
	return repository.Job{
		ID:              "job-1",
		ExternalRef:     "https://jobs.northshire.gov.uk/jobs/101",
		Title:           "Senior Planner",
		Description:     "<p>Plan things.</p>",
		DescriptionText: "Plan things.",
		Slug:            "senior-planner-ab12cd34",
	}
}

func partnerTarget(id, endpoint string) Target {
	return Target{ID: id, Name: id, Kind: KindPartnerAPI, Endpoint: endpoint}
}

func TestPublishFanOutIndependence(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	p := NewPublisher(&staticTargetStore{}, NewTokenCache(newMemTokenStore()), "https://counciljobs.example.org", 1)
	results := p.Publish(context.Background(), publishedJob(), []Target{
		partnerTarget("target-a", broken.URL),
		partnerTarget("target-b", ok.URL),
	})

	if len(results) != 2 {
		t.Fatalf("expected a result per target, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Error("target-a should have failed")
	}
	if results[1].Err != nil {
		t.Errorf("target-b failure must be independent of target-a, got %v", results[1].Err)
	}
}

func TestPublishRetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPublisher(&staticTargetStore{}, NewTokenCache(newMemTokenStore()), "https://counciljobs.example.org", 3)
	results := p.Publish(context.Background(), publishedJob(), []Target{partnerTarget("flaky", srv.URL)})

	if results[0].Err != nil {
		t.Fatalf("expected success within the retry bound, got %v", results[0].Err)
	}
	if results[0].Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", results[0].Attempts)
	}
}

func TestPublishStopsAtRetryBound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPublisher(&staticTargetStore{}, NewTokenCache(newMemTokenStore()), "https://counciljobs.example.org", 3)
	results := p.Publish(context.Background(), publishedJob(), []Target{partnerTarget("dead", srv.URL)})

	if results[0].Err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected exactly 3 delivery attempts, got %d", got)
	}
}

func TestPublishRefreshesTokenOn401(t *testing.T) {
	var issued atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := issued.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("token-%d", n),
			"expires_in":   3600,
		})
	}))
	defer tokenSrv.Close()

	var seen []string
	var mu sync.Mutex
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") == "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer sink.Close()

	target := Target{
		ID:       "li-1",
		Name:     "linkedin-main",
		Kind:     KindLinkedIn,
		Endpoint: sink.URL,
		Credentials: Credentials{
			ClientID:     "id",
			ClientSecret: "secret",
			TokenURL:     tokenSrv.URL,
			AuthorURN:    "urn:li:organization:42",
		},
	}

	p := NewPublisher(&staticTargetStore{}, NewTokenCache(newMemTokenStore()), "https://counciljobs.example.org", 3)
	results := p.Publish(context.Background(), publishedJob(), []Target{target})

	if results[0].Err != nil {
		t.Fatalf("expected success after forced refresh, got %v", results[0].Err)
	}
	if issued.Load() != 2 {
		t.Errorf("expected exactly one forced refresh (2 tokens issued), got %d", issued.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "Bearer token-1" || seen[1] != "Bearer token-2" {
		t.Errorf("expected the second attempt to carry the refreshed token, got %v", seen)
	}
}

func TestTokenCacheSingleFlight(t *testing.T) {
	var requests atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	defer tokenSrv.Close()

	target := Target{
		ID:   "li-1",
		Name: "linkedin-main",
		Kind: KindLinkedIn,
		Credentials: Credentials{
			TokenURL: tokenSrv.URL,
		},
	}

	cache := NewTokenCache(newMemTokenStore())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := cache.Token(context.Background(), target)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if token != "tok" {
				t.Errorf("unexpected token %q", token)
			}
		}()
	}
	wg.Wait()

	if got := requests.Load(); got != 1 {
		t.Errorf("concurrent misses must collapse to one refresh, got %d", got)
	}
}

func TestActiveTargetsSkipsMalformed(t *testing.T) {
	store := &staticTargetStore{rows: []repository.PublishTarget{
		{ID: "t1", Name: "partner", Kind: "partner-api", Endpoint: "https://partner.example.org/jobs"},
		{ID: "t2", Name: "mystery", Kind: "carrier-pigeon", Endpoint: "https://example.org"},
		{ID: "t3", Name: "tokenless", Kind: "linkedin", Endpoint: "https://api.linkedin.example.org", Credentials: []byte(`{}`)},
	}}

	p := NewPublisher(store, NewTokenCache(newMemTokenStore()), "https://counciljobs.example.org", 1)
	targets, err := p.ActiveTargets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0].ID != "t1" {
		t.Errorf("expected only the well-formed target, got %+v", targets)
	}
}
