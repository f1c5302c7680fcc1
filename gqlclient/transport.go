package gqlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/metrics"
)

// RequestIDHeader carries the per-request id to the server
const RequestIDHeader = "X-Request-ID"

const (
	defaultTimeout        = 30 * time.Second
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	maxResponseBytes      = 16 << 20
)

// GraphQLError is one entry of a response's errors list
type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// Code returns extensions.code, or "" when absent
func (e GraphQLError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// ResponseError is returned when the server answered with a non-empty errors list.
// It is marked with the taxonomy sentinel matching the first error's code, so
// errors.Is(err, errors.ErrValidation) works across the wire.
type ResponseError struct {
	Operation string
	Errors    []GraphQLError
}

func (e *ResponseError) Error() string {
	if len(e.Errors) == 0 {
		return "graphql request failed"
	}
	return e.Errors[0].Message
}

// newResponseError wraps errs, marked with the sentinel for the first code.
// Unknown codes are treated as transport failures.
func newResponseError(op string, errs []GraphQLError) error {
	var err error = &ResponseError{Operation: op, Errors: errs}
	sentinel := errors.FromCode(errs[0].Code())
	if sentinel == nil {
		sentinel = errors.ErrTransport
	}
	return errors.Mark(err, sentinel)
}

type wireRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

type wireResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Transport posts GraphQL requests, retrying queries on network failures, 429 and 5xx
type Transport struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	retry    config.RetryConfig
	metrics  *metrics.Client
	logger   *zap.SugaredLogger
}

func newTransport(cfg config.ClientConfig, hc *http.Client, m *metrics.Client, log *zap.SugaredLogger) *Transport {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if hc == nil {
		hc = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	} else {
		// the caller's client may be shared; only the copy gets our timeout
		c := *hc
		hc = &c
	}
	hc.Timeout = timeout

	t := &Transport{
		endpoint: cfg.Endpoint,
		http:     hc,
		retry:    cfg.Retry,
		metrics:  m,
		logger:   log,
	}
	if cfg.RateLimitPerSecond > 0 {
		burst := int(cfg.RateLimitPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), burst)
	}
	if t.retry.MaxAttempts < 1 {
		t.retry.MaxAttempts = 1
	}
	return t
}

// do executes one logical request. Only queries are retried.
func (t *Transport) do(ctx context.Context, op Operation, vars map[string]interface{}, query string, retryable bool) (*wireResponse, error) {
	body, err := json.Marshal(wireRequest{Query: query, OperationName: op.Name, Variables: vars})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s request", op.Name)
	}

	attempts := 1
	if retryable {
		attempts = t.retry.MaxAttempts
	}
	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := t.sleep(ctx, attempt); err != nil {
				return nil, errors.NewTransportError(err, op.Name+" cancelled")
			}
			t.metrics.Retries.Inc()
			t.logger.Debugw("Retrying GraphQL request",
				logger.FieldOperation, op.Name,
				logger.FieldRequestID, requestID,
				logger.FieldAttempt, attempt,
				logger.FieldError, lastErr,
			)
		}
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, errors.NewTransportError(err, "rate limiter")
			}
		}

		resp, retry, err := t.attempt(ctx, op, body, requestID)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	t.metrics.Requests.WithLabelValues(op.Name, "transport_error").Inc()
	return nil, lastErr
}

// attempt sends the request once. retry reports whether the failure is worth retrying.
func (t *Transport) attempt(ctx context.Context, op Operation, body []byte, requestID string) (resp *wireResponse, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, errors.NewTransportError(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	res, err := t.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, errors.NewTransportError(err, op.Name+" request failed")
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, true, errors.NewTransportError(err, "failed to read response")
	}
	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return nil, true, errors.NewTransportError(
			errors.Newf("server returned %d", res.StatusCode), op.Name+" request failed")
	}

	var out wireResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, errors.NewTransportError(
			errors.Newf("unexpected response (%d): %s", res.StatusCode, snippet(data)), op.Name+" request failed")
	}
	if res.StatusCode >= 400 && len(out.Errors) == 0 {
		return nil, false, errors.NewTransportError(
			errors.Newf("client error: %d", res.StatusCode), op.Name+" request failed")
	}
	return &out, false, nil
}

func (t *Transport) sleep(ctx context.Context, attempt int) error {
	initial := t.retry.InitialBackoff()
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	ceiling := t.retry.MaxBackoff()
	if ceiling <= 0 {
		ceiling = defaultMaxBackoff
	}
	delay := initial * time.Duration(1<<uint(attempt-2))
	if delay > ceiling || delay <= 0 {
		delay = ceiling
	}
	// equal jitter: half fixed, half random
	delay = delay/2 + rand.N(delay/2+1)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) closeIdle() {
	t.http.CloseIdleConnections()
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return fmt.Sprintf("%q", s)
}
