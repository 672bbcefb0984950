package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"telehealth/pkg/auth"
	"telehealth/pkg/config"
	apperrors "telehealth/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

const fallbackClientIP = "127.0.0.1"

// ClientIP returns the first X-Forwarded-For hop, falling back to the peer
// address of the connection.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return fallbackClientIP
}

func UserAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return "Unknown"
}

// ClientContext returns the request context carrying the caller's address and
// user agent.
func ClientContext(r *http.Request) context.Context {
	return auth.WithClient(r.Context(), auth.Client{
		IP:        ClientIP(r),
		UserAgent: UserAgent(r),
	})
}
