package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ValidationError is a client-side precondition failure. It never reaches the
// network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NetworkError means the request was sent but no response came back.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: no response from backend: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is a local deadline or transport-level timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ServerError is a response with a non-2xx status.
type ServerError struct {
	Op     string
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("%s: backend returned %d %s", e.Op, e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

type AnalysisKind string

const (
	AnalysisNotFound AnalysisKind = "not_found"
	AnalysisServer   AnalysisKind = "server"
	AnalysisTimeout  AnalysisKind = "timeout"
	AnalysisNetwork  AnalysisKind = "network"
	AnalysisClient   AnalysisKind = "client"
)

// AnalysisError is the single failure returned once the analysis retry budget
// is spent. Message is suitable for display.
type AnalysisError struct {
	Kind     AnalysisKind
	Status   int
	Message  string
	Attempts int
	Err      error
}

func (e *AnalysisError) Error() string { return e.Message }

func (e *AnalysisError) Unwrap() error { return e.Err }

func classifyAnalysisError(err error, attempts int) *AnalysisError {
	ae := &AnalysisError{Kind: AnalysisNetwork, Attempts: attempts, Err: err}

	var serverErr *ServerError
	var timeoutErr *TimeoutError
	switch {
	case errors.As(err, &timeoutErr):
		ae.Kind = AnalysisTimeout
		ae.Message = "AI分析がタイムアウトしました。PDFが大きすぎる可能性があります。"
	case errors.As(err, &serverErr):
		ae.Status = serverErr.Status
		switch {
		case serverErr.Status == http.StatusNotFound:
			ae.Kind = AnalysisNotFound
			ae.Message = "指定されたPDFが見つかりません。"
		case serverErr.Status == http.StatusRequestTimeout || serverErr.Status == http.StatusGatewayTimeout:
			ae.Kind = AnalysisTimeout
			ae.Message = "AI分析がタイムアウトしました。PDFが大きすぎる可能性があります。"
		case serverErr.Status >= 500:
			ae.Kind = AnalysisServer
			if serverErr.Detail != "" {
				ae.Message = "AI分析サーバーエラー: " + serverErr.Detail
			} else {
				ae.Message = fmt.Sprintf("サーバーエラー: %d - %s", serverErr.Status, http.StatusText(serverErr.Status))
			}
		default:
			ae.Kind = AnalysisClient
			ae.Message = serverMessage(serverErr)
		}
	default:
		ae.Message = "AI分析中にネットワークエラーが発生しました: " + rootMessage(err)
	}
	return ae
}

// UserMessage maps an API client error to the inline message shown in the UI.
// fallback is used for errors outside the taxonomy.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var (
		validationErr *ValidationError
		analysisErr   *AnalysisError
		serverErr     *ServerError
		timeoutErr    *TimeoutError
		networkErr    *NetworkError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &analysisErr):
		return analysisErr.Message
	case errors.As(err, &timeoutErr):
		return "リクエストがタイムアウトしました。しばらく時間をおいて再試行してください。"
	case errors.As(err, &serverErr):
		return serverMessage(serverErr)
	case errors.As(err, &networkErr):
		return "サーバーに接続できません。バックエンドが起動しているか確認してください。"
	case errors.Is(err, context.Canceled):
		return "リクエストはキャンセルされました。"
	}
	if fallback != "" {
		return fallback
	}
	return "エラー: " + err.Error()
}

func serverMessage(e *ServerError) string {
	msg := fmt.Sprintf("サーバーエラー: %d - %s", e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// transportError sorts a failed http.Client.Do into the taxonomy.
func transportError(op string, timeout time.Duration, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Op: op, Timeout: timeout, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}

// extractDetail pulls a human-readable message out of an error body. The
// backend uses {"detail": ...} for HTTP errors and {"error": ...} for analysis
// failures.
func extractDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		if len(trimmed) > 512 {
			trimmed = trimmed[:512]
		}
		return trimmed
	}
	for _, key := range []string{"error", "detail", "message"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}
	return ""
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
