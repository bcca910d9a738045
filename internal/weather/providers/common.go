package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Options are shared by every provider constructor.
type Options struct {
	Client *http.Client
	// RequestsPerMinute caps calls to a single provider (0 = unlimited).
	RequestsPerMinute int
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
	// Backoff overrides the retry schedule; zero picks the default.
	Backoff BackoffConfig
}

var defaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errMissingAPIKey = errors.New("api key is not configured")
)

// client is the resilient JSON GETter each provider owns: rate limited,
// retried with exponential backoff and guarded by a circuit breaker.
type client struct {
	http    *http.Client
	baseURL string
	backoff BackoffConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func newClient(name, defaultURL string, opts Options) *client {
	c := &client{
		http:    opts.Client,
		baseURL: defaultURL,
		backoff: opts.Backoff,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	if c.backoff == (BackoffConfig{}) {
		c.backoff = defaultBackoff
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}
	return c
}

func unitParam(unit weather.TemperatureUnit, celsius, fahrenheit string) string {
	if unit == weather.Fahrenheit {
		return fahrenheit
	}
	return celsius
}

// getJSON requests baseURL?query and decodes the response body into out.
func (c *client) getJSON(ctx context.Context, query url.Values, out any) error {
	if c.http == nil {
		return errNoHTTPClient
	}
	if c.backoff.MaxRetries < 0 || c.backoff.InitialInterval <= 0 {
		return errInvalidConfig
	}
	endpoint := c.baseURL + "?" + query.Encode()

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := c.once(ctx, endpoint)
		if err == nil {
			defer resp.Body.Close()
			return json.NewDecoder(resp.Body).Decode(out)
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if ctx.Err() != nil || attempt >= c.backoff.MaxRetries {
			return err
		}

		if err := sleepCtx(ctx, c.delay(attempt)); err != nil {
			return err
		}
	}
}

// once performs a single attempt through the breaker. Non-2xx responses are
// closed and turned into errors.
func (c *client) once(ctx context.Context, endpoint string) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			resp.Body.Close()
			return nil, errServerError
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

func (c *client) delay(attempt int) time.Duration {
	d := c.backoff.InitialInterval << attempt
	if c.backoff.MaxInterval > 0 && (d > c.backoff.MaxInterval || d <= 0) {
		d = c.backoff.MaxInterval
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
