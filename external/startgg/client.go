package startgg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/time/rate"

	"github.com/smashcc/analytics/internal/platform/logging"
	"github.com/smashcc/analytics/internal/platform/resilience"
	"github.com/smashcc/analytics/internal/usecase"
)

const (
	defaultBaseURL     = "https://api.start.gg/gql/alpha"
	defaultMaxAttempts = 10
	maxBackoff         = 60 * time.Second
	responseLimit      = 8 << 20
)

var bearerTokenRegex = regexp.MustCompile(`(?i)bearer\s+[^\s"']+`)

// errStartGGTransient marks failures worth retrying on a later sync run.
// Auth rejections and GraphQL-level errors are never wrapped with it.
var errStartGGTransient = crerr.New("startgg transient failure")

// IsTransient reports whether the provider failure may succeed on retry.
func IsTransient(err error) bool {
	return crerr.Is(err, errStartGGTransient)
}

type ClientConfig struct {
	HTTPClient        *http.Client
	BaseURL           string
	Token             string
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerMinute int
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
	Cache             Cache
	CacheMaxAge       time.Duration
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxAttempts    int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	limiter        *rate.Limiter
	cache          Cache
	cacheMaxAge    time.Duration
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 75
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxAttempts:    maxAttempts,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		cache:          cfg.Cache,
		cacheMaxAge:    cfg.CacheMaxAge,
		now:            time.Now,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// Execute runs one GraphQL document against the provider and decodes the
// data member into target. Responses are served from and written to the raw
// cache when one is configured.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any, target any) error {
	key := CacheKey(query, variables)

	if c.cache != nil && c.cacheMaxAge > 0 {
		if raw, storedAt, ok := c.cache.Get(key); ok && c.now().Sub(storedAt) < c.cacheMaxAge {
			return decodeEnvelope(raw, target)
		}
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "startgg circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: tournament data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, query, variables)
		if c.circuitEnabled {
			if reqErr != nil && IsTransient(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		if IsTransient(err) {
			return fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, err)
		}
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := decodeEnvelope(raw, target); err != nil {
		return err
	}

	if c.cache != nil {
		if putErr := c.cache.Put(key, raw); putErr != nil {
			c.logger.WarnContext(ctx, "startgg cache write failed", "error", putErr)
		}
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(gqlRequest{Query: query, Variables: variables}); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		wait := minDuration(time.Duration(math.Pow(2, float64(attempt)))*time.Second, maxBackoff)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errStartGGTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errStartGGTransient, readErr)
			case resp.StatusCode == http.StatusTooManyRequests:
				if after := parseRetryAfter(resp.Header.Get("Retry-After")); after > 0 {
					wait = minDuration(after, maxBackoff)
				}
				lastErr = fmt.Errorf("%w: provider rate limited", errStartGGTransient)
			case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
				return nil, fmt.Errorf("provider rejected credentials status=%d", resp.StatusCode)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errStartGGTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxAttempts-1 {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: provider request failed", errStartGGTransient)
	}
	c.logger.WarnContext(ctx, "startgg request failed", "error", sanitizeSensitiveText(lastErr.Error(), c.token))
	return nil, lastErr
}

func decodeEnvelope(raw []byte, target any) error {
	var envelope gqlEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, item := range envelope.Errors {
			messages = append(messages, item.Message)
		}
		return fmt.Errorf("provider query error: %s", strings.Join(messages, "; "))
	}
	if target == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("decode provider data: %w", err)
	}
	return nil
}

func parseRetryAfter(raw string) time.Duration {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return bearerTokenRegex.ReplaceAllString(value, "Bearer REDACTED")
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
