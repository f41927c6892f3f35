package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/counciljobs/ingestion-service/common/utils"
)

const (
	headerAccessTime       = "X-ACCESS-TIME"
	headerApiKey           = "X-API-KEY"
	headerRequestSignature = "X-REQUEST-SIGNATURE"

	// accessTimeWindow bounds clock skew between callers and the service.
	accessTimeWindow = 5 * time.Minute
)

// AccessTime requires a unix-seconds X-ACCESS-TIME header within the allowed
// window. It is the freshness component of the request signature scheme.
func AccessTime() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(headerAccessTime)
			if raw == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Missing access time")
				return
			}
			ts, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid access time")
				return
			}
			drift := time.Since(time.Unix(ts, 0))
			if drift > accessTimeWindow || drift < -accessTimeWindow {
				utils.WriteError(w, http.StatusUnauthorized, "Access time outside allowed window")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ApiKey checks X-API-KEY against the salted digest of the backend key and
// the request's access time.
func ApiKey(backendKey, salt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessTime := r.Header.Get(headerAccessTime)
			expected := digest(salt, backendKey, accessTime)
			provided := r.Header.Get(headerApiKey)
			if provided == "" || !hmac.Equal([]byte(provided), []byte(expected)) {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestSignature checks X-REQUEST-SIGNATURE over the method, path and
// access time so a captured key cannot be replayed against other endpoints.
func RequestSignature(salt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessTime := r.Header.Get(headerAccessTime)
			expected := digest(salt, r.Method, r.URL.Path, accessTime)
			provided := r.Header.Get(headerRequestSignature)
			if provided == "" || !hmac.Equal([]byte(provided), []byte(expected)) {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid request signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func digest(salt string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	for _, p := range parts {
		mac.Write([]byte(p))
		mac.Write([]byte{'|'})
	}
	return hex.EncodeToString(mac.Sum(nil))
}
