package apiclient

import (
	"strings"
)

// MaxUploadSize is the largest PDF accepted for upload (50 MiB).
const MaxUploadSize int64 = 50 << 20

// ValidateUpload checks a file before any bytes are sent.
func ValidateUpload(filename string, size int64) error {
	if filename == "" || size <= 0 {
		return &ValidationError{Field: "file", Message: "ファイルを選択してください"}
	}
	if size > MaxUploadSize {
		return &ValidationError{Field: "file", Message: "ファイルサイズが大きすぎます。50MB以下のファイルを選択してください。"}
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return &ValidationError{Field: "file", Message: "PDFファイルのみアップロードできます。"}
	}
	return nil
}

// ValidateSourceURL checks a download or crawl URL.
func ValidateSourceURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{Field: "url", Message: "URLを入力してください"}
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return &ValidationError{Field: "url", Message: "URLは http:// または https:// で始まる必要があります"}
	}
	return nil
}
