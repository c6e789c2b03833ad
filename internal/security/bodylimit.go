package security

import (
	"bytes"
	"io"
	"net/http"

	"github.com/noah-isme/chowpati-api/internal/common"
)

// DefaultBodyLimit caps cart and order payloads.
const DefaultBodyLimit int64 = 64 << 10

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with HTTP 413.
// The body is buffered so handlers can decode it with unknown fields disallowed.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	limit := b.Max
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > limit {
			tooLarge(w, limit)
			return
		}
		buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		_ = r.Body.Close()
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
			return
		}
		if int64(len(buf)) > limit {
			tooLarge(w, limit)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter, limit int64) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", map[string]int64{"maxBytes": limit})
}
