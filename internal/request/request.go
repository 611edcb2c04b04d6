package request

import (
	"net/http"
	"strings"
)

// ClientIP resolves the originating client address. The API sits behind
// a reverse proxy in every deployment, so forwarded headers win over
// RemoteAddr; the first X-Forwarded-For entry is the original client.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
