package infrastructure

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPRequestTimeout    = 15 * time.Second
	defaultHTTPRequestsPerSecond = 3.0
	defaultHTTPBurst             = 1
)

type HTTPClientConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Transport         http.RoundTripper
	Logger            *logrus.Entry
}

// NewHTTPClient builds the exchange transport: every request gets a request id,
// waits for the rate limiter and is access-logged at debug level.
func NewHTTPClient(cfg HTTPClientConfig) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPRequestTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultHTTPRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultHTTPBurst
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	transport := chainHTTPRoundTripper(
		cfg.Transport,
		httpRequestIDRoundTripper,
		httpRateLimitRoundTripper(limiter),
		httpAccessLogRoundTripper(cfg.Logger),
	)

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type httpRoundTripperMiddleware func(http.RoundTripper) http.RoundTripper

func chainHTTPRoundTripper(base http.RoundTripper, middlewares ...httpRoundTripperMiddleware) http.RoundTripper {
	wrapped := base
	for idx := len(middlewares) - 1; idx >= 0; idx-- {
		wrapped = middlewares[idx](wrapped)
	}

	return wrapped
}

func httpRequestIDRoundTripper(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if strings.TrimSpace(r.Header.Get("X-Request-Id")) != "" {
			return next.RoundTrip(r)
		}

		cloned := r.Clone(r.Context())
		cloned.Header.Set("X-Request-Id", uuid.NewString())
		return next.RoundTrip(cloned)
	})
}

func httpRateLimitRoundTripper(limiter *rate.Limiter) httpRoundTripperMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}

			return next.RoundTrip(r)
		})
	}
}

func httpAccessLogRoundTripper(logger *logrus.Entry) httpRoundTripperMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			started := time.Now()
			resp, err := next.RoundTrip(r)

			fields := logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"request_id":  r.Header.Get("X-Request-Id"),
				"duration_ms": time.Since(started).Milliseconds(),
			}
			if err != nil {
				logger.WithFields(fields).WithError(err).Debug("http request failed")
				return nil, err
			}

			fields["status"] = resp.StatusCode
			logger.WithFields(fields).Debug("http request handled")

			return resp, nil
		})
	}
}
