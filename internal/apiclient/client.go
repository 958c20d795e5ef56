package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Analysis   AnalysisPolicy
	HTTPClient *http.Client
}

// Client talks to the catalogue backend. It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	analysis AnalysisPolicy
	log      *zap.Logger
	metrics  *metrics
	sleep    func(ctx context.Context, d time.Duration) error
}

func New(opts Options, log *zap.Logger, reg prometheus.Registerer) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8001"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Deadlines come from per-request contexts so analysis can exceed
		// the default timeout.
		httpClient = &http.Client{}
	}
	analysis := opts.Analysis
	if analysis.MaxAttempts == 0 {
		analysis = DefaultAnalysisPolicy()
	}

	return &Client{
		baseURL:  baseURL,
		http:     httpClient,
		timeout:  timeout,
		analysis: analysis.normalize(),
		log:      log.Named("apiclient"),
		metrics:  newMetrics(reg),
		sleep:    sleepContext,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	op          string
	method      string
	path        string
	body        []byte
	contentType string
	timeout     time.Duration
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	url := c.baseURL + r.path
	req, err := http.NewRequestWithContext(ctx, r.method, url, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	requestID := RequestID(ctx)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	c.log.Debug("API Request",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("url", url),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(r.op, r.method, "error", elapsed)
		c.log.Warn("API Request Error",
			zap.String("op", r.op),
			zap.String("method", r.method),
			zap.String("url", url),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return transportError(r.op, timeout, err)
	}
	defer resp.Body.Close()

	c.metrics.observe(r.op, r.method, fmt.Sprint(resp.StatusCode), elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		serverErr := &ServerError{Op: r.op, Status: resp.StatusCode, Detail: extractDetail(b)}
		c.log.Warn("API Response Error",
			zap.String("op", r.op),
			zap.String("method", r.method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", serverErr.Detail),
			zap.Duration("elapsed", elapsed),
		)
		return serverErr
	}

	c.log.Info("API Response",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.send(ctx, request{op: op, method: http.MethodGet, path: path}, out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.send(ctx, request{op: op, method: method, path: path, body: b, contentType: "application/json"}, out)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx so outgoing backend calls carry X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
