package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LogRequests returns a middleware that logs every outgoing request with its
// status and duration. Failures and 5xx responses are logged at warn level.
func LogRequests(lg *zap.Logger) Middleware {
	if lg == nil {
		lg = zap.NewNop()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("url", r.URL.Redacted()),
				zap.Duration("duration", time.Since(start)),
			}
			if id := r.Header.Get("X-Request-ID"); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			switch {
			case err != nil:
				lg.Warn("Request failed", append(fields, zap.Error(err))...)
			case resp.StatusCode >= http.StatusInternalServerError:
				lg.Warn("Request", append(fields, zap.Int("status", resp.StatusCode))...)
			default:
				lg.Debug("Request", append(fields, zap.Int("status", resp.StatusCode))...)
			}
			return resp, err
		})
	}
}
