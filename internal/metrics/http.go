package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
)

// knownPaths are the routes reported under their own label. Anything else
// is grouped as "other" to bound cardinality.
var knownPaths = map[string]struct{}{
	"/":                  {},
	"/healthz":           {},
	"/readyz":            {},
	"/metrics":           {},
	"/v1/version":        {},
	"/v1/search":         {},
	"/v1/search/suggest": {},
	"/v1/search/filters": {},
}

// ObserveHTTP records a finished request. Its signature matches
// middleware.ObserveFunc.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	p := normalizePath(path)
	m.HTTPRequests.WithLabelValues(method, p, statusCode(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, p).Observe(elapsed.Seconds())
}

// normalizePath maps a request path to a bounded label value.
func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

// statusCode keeps the common codes and groups the rest by class.
func statusCode(code int) string {
	switch code {
	case 200, 201, 204, 400, 404, 405, 422, 429, 500, 503, 504:
		return strconv.Itoa(code)
	}
	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}
	return strconv.Itoa(code)
}

func errorCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return apperrors.CodeInternal
}
