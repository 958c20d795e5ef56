package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/models"
)

// AnalysisPolicy bounds the retries of the long-running analysis call.
// Attempt k (1-based) runs with timeout BaseTimeout*k and, when it fails and
// another attempt remains, is followed by a wait of min(WaitStep*k, MaxWait).
type AnalysisPolicy struct {
	MaxAttempts int
	BaseTimeout time.Duration
	WaitStep    time.Duration
	MaxWait     time.Duration
	// RetryAll retries every failure, 4xx included.
	RetryAll bool
}

func DefaultAnalysisPolicy() AnalysisPolicy {
	return AnalysisPolicy{
		MaxAttempts: 3,
		BaseTimeout: 180 * time.Second,
		WaitStep:    time.Second,
		MaxWait:     5 * time.Second,
	}
}

func (p AnalysisPolicy) normalize() AnalysisPolicy {
	d := DefaultAnalysisPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseTimeout <= 0 {
		p.BaseTimeout = d.BaseTimeout
	}
	if p.WaitStep <= 0 {
		p.WaitStep = d.WaitStep
	}
	if p.MaxWait <= 0 {
		p.MaxWait = d.MaxWait
	}
	return p
}

func (p AnalysisPolicy) Timeout(attempt int) time.Duration {
	return p.BaseTimeout * time.Duration(attempt)
}

func (p AnalysisPolicy) Wait(attempt int) time.Duration {
	return min(p.WaitStep*time.Duration(attempt), p.MaxWait)
}

// ShouldRetry reports whether err is worth another attempt. Only transient
// failures qualify unless RetryAll is set.
func (p AnalysisPolicy) ShouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.RetryAll {
		return true
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		switch {
		case serverErr.Status == http.StatusRequestTimeout,
			serverErr.Status == http.StatusTooManyRequests,
			serverErr.Status >= 500:
			return true
		default:
			return false
		}
	}
	var timeoutErr *TimeoutError
	var networkErr *NetworkError
	return errors.As(err, &timeoutErr) || errors.As(err, &networkErr)
}

// AnalyzeDocument runs the backend AI analysis on a PDF. A backend that answers
// {"success": false} is a result, not an error. Transport and server failures
// are retried per the client's AnalysisPolicy and end in *AnalysisError.
func (c *Client) AnalyzeDocument(ctx context.Context, id int64) (*models.AnalysisResult, error) {
	p := c.analysis
	path := fmt.Sprintf("/pdfs/%d/analyze", id)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		attempts = attempt
		timeout := p.Timeout(attempt)
		c.log.Info("analysis attempt",
			zap.Int64("pdf_id", id),
			zap.Int("attempt", attempt),
			zap.Duration("timeout", timeout),
		)

		var result models.AnalysisResult
		err := c.send(ctx, request{
			op:          "analyze_pdf",
			method:      http.MethodPost,
			path:        path,
			body:        []byte("{}"),
			contentType: "application/json",
			timeout:     timeout,
		}, &result)
		if err == nil {
			return &result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("analyze pdf %d: %w", id, ctx.Err())
		}
		if attempt == p.MaxAttempts || !p.ShouldRetry(err) {
			break
		}

		wait := p.Wait(attempt)
		c.log.Warn("analysis attempt failed, retrying",
			zap.Int64("pdf_id", id),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("analyze pdf %d: %w", id, err)
		}
	}

	ae := classifyAnalysisError(lastErr, attempts)
	c.log.Error("analysis failed",
		zap.Int64("pdf_id", id),
		zap.Int("attempts", attempts),
		zap.String("kind", string(ae.Kind)),
		zap.Error(lastErr),
	)
	return nil, ae
}
