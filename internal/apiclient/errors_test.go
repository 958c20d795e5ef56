package apiclient

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"PDFが見つかりません"}`, "PDFが見つかりません"},
		{`{"error":"boom","detail":"ignored"}`, "boom"},
		{`{"detail":[{"loc":["body","url"],"msg":"field required"}]}`, `[{"loc":["body","url"],"msg":"field required"}]`},
		{`Internal Server Error`, "Internal Server Error"},
		{``, ""},
		{`{"other":1}`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractDetail([]byte(tt.body)), "body %q", tt.body)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"validation", &ValidationError{Message: "URLを入力してください"}, "", "URLを入力してください"},
		{"server with detail", &ServerError{Status: 400, Detail: "不正なURL"}, "", "サーバーエラー: 400 - Bad Request (不正なURL)"},
		{"server wrapped", fmt.Errorf("load: %w", &ServerError{Status: 503}), "", "サーバーエラー: 503 - Service Unavailable"},
		{"network", &NetworkError{Op: "list_pdfs", Err: assert.AnError}, "", "サーバーに接続できません。バックエンドが起動しているか確認してください。"},
		{"timeout", &TimeoutError{Op: "list_pdfs"}, "", "リクエストがタイムアウトしました。しばらく時間をおいて再試行してください。"},
		{"analysis", &AnalysisError{Message: "AI分析サーバーエラー: boom"}, "", "AI分析サーバーエラー: boom"},
		{"canceled", fmt.Errorf("x: %w", context.Canceled), "", "リクエストはキャンセルされました。"},
		{"fallback", assert.AnError, "過去問題一覧の取得に失敗しました", "過去問題一覧の取得に失敗しました"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, tt.fallback))
		})
	}
}

func TestClassifyAnalysisError(t *testing.T) {
	tests := []struct {
		err  error
		kind AnalysisKind
	}{
		{&ServerError{Status: 404}, AnalysisNotFound},
		{&ServerError{Status: 500, Detail: "boom"}, AnalysisServer},
		{&ServerError{Status: 504}, AnalysisTimeout},
		{&ServerError{Status: 408}, AnalysisTimeout},
		{&ServerError{Status: 422}, AnalysisClient},
		{&TimeoutError{Op: "analyze_pdf"}, AnalysisTimeout},
		{&NetworkError{Op: "analyze_pdf", Err: assert.AnError}, AnalysisNetwork},
	}
	for _, tt := range tests {
		ae := classifyAnalysisError(tt.err, 3)
		assert.Equal(t, tt.kind, ae.Kind, "%v", tt.err)
		assert.NotEmpty(t, ae.Message)
		assert.ErrorIs(t, ae, tt.err)
	}
}
