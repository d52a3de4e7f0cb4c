// Package httpprobe checks that remote resources exist with HEAD requests.
package httpprobe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Defaults for Config fields left zero.
const (
	DefaultTimeout         = 3 * time.Second
	DefaultRetries         = 2
	DefaultInitialInterval = 200 * time.Millisecond
)

// Prober issues HEAD requests with exponential backoff on transient failures.
type Prober struct {
	client          *http.Client
	retries         uint64
	initialInterval time.Duration
	userAgent       string
	logger          *zap.Logger
}

// Config holds the prober settings.
type Config struct {
	Timeout         time.Duration
	Retries         int
	InitialInterval time.Duration
	UserAgent       string
	Client          *http.Client // optional; Timeout is ignored when set
	Logger          *zap.Logger
}

// New creates a Prober.
func New(cfg *Config) *Prober {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	interval := cfg.InitialInterval
	if interval <= 0 {
		interval = DefaultInitialInterval
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		client:          client,
		retries:         uint64(retries),
		initialInterval: interval,
		userAgent:       cfg.UserAgent,
		logger:          logger,
	}
}

// statusError is a non-success HTTP status.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// Exists reports whether url answers a HEAD request with a 2xx or 3xx status.
// A 4xx answer is a definite "no" and is not retried. Network errors and 5xx
// answers are retried; when retries run out the last error is returned.
func (p *Prober) Exists(ctx context.Context, url string) (bool, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialInterval
	bo.MaxElapsedTime = 0

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if p.userAgent != "" {
			req.Header.Set("User-Agent", p.userAgent)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("head %s: %w", url, err)
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode < 400:
			return nil
		case resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			return backoff.Permanent(&statusError{code: resp.StatusCode})
		default:
			return &statusError{code: resp.StatusCode}
		}
	}

	notify := func(err error, next time.Duration) {
		p.logger.Debug("Retrying HEAD probe",
			zap.String("url", url),
			zap.Duration("next_retry_in", next),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(bo, p.retries), ctx), notify)
	if err == nil {
		return true, nil
	}
	var se *statusError
	if errors.As(err, &se) && se.code < 500 && se.code != http.StatusTooManyRequests {
		return false, nil
	}
	return false, err
}
