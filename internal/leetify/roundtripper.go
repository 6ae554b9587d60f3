package leetify

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/verte-zerg/leetboard/internal/logging"
)

const maskedValue = "[MASKED]"

var sensitiveHeaders = map[string]struct{}{
	http.CanonicalHeaderKey(KeyHeader): {},
	"Authorization":                    {},
}

// LoggingRoundTripper logs each request at debug level with its
// credential headers masked.
type LoggingRoundTripper struct {
	next http.RoundTripper
}

// NewLoggingRoundTripper wraps next.
func NewLoggingRoundTripper(next http.RoundTripper) LoggingRoundTripper {
	return LoggingRoundTripper{next: next}
}

// RoundTrip implements http.RoundTripper.
func (rt LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := xid.New().String()
	start := time.Now()

	logging.Debug().
		Str("request-id", requestID).
		Str("http-method", req.Method).
		Str("url", req.URL.String()).
		Str("headers", maskHeaders(req.Header)).
		Msg("http request")

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		logging.Debug().
			Str("request-id", requestID).
			Err(err).
			Int64("duration-ms", time.Since(start).Milliseconds()).
			Msg("http request failed")
		return nil, err
	}

	logging.Debug().
		Str("request-id", requestID).
		Int("response-status", resp.StatusCode).
		Int64("duration-ms", time.Since(start).Milliseconds()).
		Msg("http response")
	return resp, nil
}

func maskHeaders(h http.Header) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		value := strings.Join(h.Values(name), ",")
		if _, ok := sensitiveHeaders[http.CanonicalHeaderKey(name)]; ok {
			value = maskedValue
		}
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, " ")
}
