package middlewares

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAccessTime(t *testing.T) {
	handler := AccessTime()(okHandler())

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-number", http.StatusUnauthorized},
		{"current", strconv.FormatInt(time.Now().Unix(), 10), http.StatusOK},
		{"stale", strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10), http.StatusUnauthorized},
		{"future", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
			if tc.header != "" {
				req.Header.Set("X-ACCESS-TIME", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestApiKey(t *testing.T) {
	const backendKey = "backend-key"
	const salt = "salt"

	handler := ApiKey(backendKey, salt)(okHandler())
	accessTime := strconv.FormatInt(time.Now().Unix(), 10)

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		req.Header.Set("X-ACCESS-TIME", accessTime)
		req.Header.Set("X-API-KEY", digest(salt, backendKey, accessTime))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		req.Header.Set("X-ACCESS-TIME", accessTime)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("wrong salt", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		req.Header.Set("X-ACCESS-TIME", accessTime)
		req.Header.Set("X-API-KEY", digest("other-salt", backendKey, accessTime))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("replayed key with different access time", func(t *testing.T) {
		older := strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10)
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		req.Header.Set("X-ACCESS-TIME", accessTime)
		req.Header.Set("X-API-KEY", digest(salt, backendKey, older))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestRequestSignature(t *testing.T) {
	const salt = "salt"

	handler := RequestSignature(salt)(okHandler())
	accessTime := strconv.FormatInt(time.Now().Unix(), 10)

	sign := func(method, path string) string {
		return digest(salt, method, path, accessTime)
	}

	t.Run("valid signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
		req.Header.Set("X-ACCESS-TIME", accessTime)
		req.Header.Set("X-REQUEST-SIGNATURE", sign(http.MethodPost, "/v1/runs"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("signature does not transfer between endpoints", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sources", nil)
		req.Header.Set("X-ACCESS-TIME", accessTime)
		req.Header.Set("X-REQUEST-SIGNATURE", sign(http.MethodPost, "/v1/runs"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("signature does not transfer between methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		req.Header.Set("X-ACCESS-TIME", accessTime)
		req.Header.Set("X-REQUEST-SIGNATURE", sign(http.MethodPost, "/v1/runs"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestDigestDeterministic(t *testing.T) {
	a := digest("salt", "one", "two")
	b := digest("salt", "one", "two")
	if a != b {
		t.Errorf("digest not deterministic: %s vs %s", a, b)
	}

	// Part boundaries must matter.
	if digest("salt", "onet", "wo") == a {
		t.Error("digest ignores part boundaries")
	}

	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Errorf("digest is not hex: %v", err)
	}
}
