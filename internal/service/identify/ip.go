package identify

import (
	"net/http"
	"strings"
)

// VisitorIP extracts the client address from proxy headers, in order:
// X-Forwarded-For (first hop), X-Real-IP, CF-Connecting-IP.
func VisitorIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return strings.TrimSpace(r.Header.Get("CF-Connecting-IP"))
}
