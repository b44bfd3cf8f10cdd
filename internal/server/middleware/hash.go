package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/and161185/metrics-state/internal/utils"
)

// HashHeader carries the body signature in both directions.
const HashHeader = "HashSHA256"

// VerifyHashMiddleware rejects requests whose HashSHA256 header does not match
// the body signed with key, and signs responses. An empty key disables it.
func VerifyHashMiddleware(key string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			headerHash := r.Header.Get(HashHeader)
			if headerHash != "" && headerHash != utils.CalculateHash(bodyBytes, key) {
				http.Error(w, "invalid hash", http.StatusBadRequest)
				return
			}

			capture := &responseCapture{header: http.Header{}, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			for k, v := range capture.header {
				w.Header()[k] = v
			}
			w.Header().Set(HashHeader, utils.CalculateHash(capture.body.Bytes(), key))
			w.WriteHeader(capture.status)
			_, _ = w.Write(capture.body.Bytes())
		})
	}
}

type responseCapture struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *responseCapture) Header() http.Header { return r.header }

func (r *responseCapture) WriteHeader(code int) { r.status = code }

func (r *responseCapture) Write(b []byte) (int, error) {
	return r.body.Write(b)
}
