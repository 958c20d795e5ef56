package documents

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

// backend is a fake catalogue backend that records every call.
type backend struct {
	mu      sync.Mutex
	calls   []string
	forms   []url.Values
	handler func(w http.ResponseWriter, r *http.Request)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			b.forms = append(b.forms, url.Values(r.MultipartForm.Value))
		}
	}
	b.mu.Unlock()
	b.handler(w, r)
}

func newRouter(t *testing.T, b *backend) http.Handler {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	client := apiclient.New(apiclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop(), nil)
	render, err := web.NewRenderer("test", nil)
	require.NoError(t, err)
	h := NewHandler(client, render, zap.NewNop())
	h.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }

	r := mux.NewRouter()
	r.HandleFunc("/admin/upload", h.UploadPage).Methods(http.MethodGet)
	r.HandleFunc("/admin/upload/file", h.UploadFile).Methods(http.MethodPost)
	r.HandleFunc("/admin/upload/url", h.DownloadURL).Methods(http.MethodPost)
	r.HandleFunc("/admin/upload/crawl", h.Crawl).Methods(http.MethodPost)
	r.HandleFunc("/pdfs/{id}/view", h.View).Methods(http.MethodGet)
	r.HandleFunc("/admin/pdfs/{id}/edit", h.Edit).Methods(http.MethodPost)
	return r
}

func postForm(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/admin/upload/file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func noticeOf(t *testing.T, rec *httptest.ResponseRecorder) *web.Notice {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return web.NoticeFromRequest(&http.Request{URL: loc})
}

func TestCrawlNotice(t *testing.T) {
	n := CrawlNotice(&models.CrawlResult{Message: "クロール完了", TotalFound: 5, SuccessfullySaved: 3, FailedSaves: []string{"a.pdf", "b.pdf"}})
	assert.Equal(t, web.NoticeSuccess, n.Kind)
	assert.Equal(t, "クロール完了 (3/5個成功)", n.Text)

	n = CrawlNotice(&models.CrawlResult{TotalFound: 2, FailedSaves: []string{"a.pdf: 403", "b.pdf: 500"}})
	assert.Equal(t, web.NoticeError, n.Kind)
	assert.Contains(t, n.Text, "a.pdf: 403, b.pdf: 500")

	n = CrawlNotice(&models.CrawlResult{TotalFound: 2})
	assert.Contains(t, n.Text, "不明なエラー")

	n = CrawlNotice(&models.CrawlResult{})
	assert.Equal(t, web.NoticeError, n.Kind)
	assert.Equal(t, noPDFsMessage, n.Text)
}

func TestUploadPage_DefaultsYear(t *testing.T) {
	h := newRouter(t, &backend{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/upload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="2024"`)
}

func TestUploadFile_RejectedLocally(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"no file", "", nil, "ファイルを選択してください"},
		{"not a pdf", "exam.docx", []byte("x"), "PDFファイルのみアップロードできます。"},
		{"empty file", "exam.pdf", nil, "ファイルを選択してください"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {}}
			h := newRouter(t, b)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, multipartUpload(t, tt.filename, tt.content, map[string]string{"school": "開成"}))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Empty(t, b.calls, "nothing reaches the backend")
		})
	}
}

func TestUploadFile_BadYear(t *testing.T) {
	b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {}}
	h := newRouter(t, b)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartUpload(t, "a.pdf", []byte("%PDF"), map[string]string{"year": "1800"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "年度は1900〜2100の範囲で入力してください")
	assert.Empty(t, b.calls)
}

func TestUploadFile_Success(t *testing.T) {
	b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
		web.WriteJSON(w, http.StatusOK, models.Document{ID: 7, Filename: "kaisei.pdf"})
	}}
	h := newRouter(t, b)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartUpload(t, "kaisei.pdf", []byte("%PDF-1.4"), map[string]string{
		"school": "開成", "subject": "math", "year": "2023",
	}))

	n := noticeOf(t, rec)
	require.NotNil(t, n)
	assert.Equal(t, web.NoticeSuccess, n.Kind)
	assert.Equal(t, []string{"POST /upload_pdf/"}, b.calls)
	require.Len(t, b.forms, 1)
	assert.Equal(t, "開成", b.forms[0].Get("school"))
	assert.Equal(t, "2023", b.forms[0].Get("year"))
}

func TestUploadFile_BackendDetail(t *testing.T) {
	b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
		web.WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "このPDFは既に登録されています"})
	}}
	h := newRouter(t, b)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartUpload(t, "dup.pdf", []byte("%PDF"), nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "このPDFは既に登録されています")
}

func TestDownloadURL(t *testing.T) {
	t.Run("scheme checked before any call", func(t *testing.T) {
		b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {}}
		h := newRouter(t, b)

		rec := postForm(h, "/admin/upload/url", url.Values{"url": {"ftp://example.com/a.pdf"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "URLは http:// または https:// で始まる必要があります")

		rec = postForm(h, "/admin/upload/url", url.Values{"url": {""}})
		assert.Contains(t, rec.Body.String(), "URLを入力してください")
		assert.Empty(t, b.calls)
	})

	t.Run("success omits empty metadata", func(t *testing.T) {
		b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
			web.WriteJSON(w, http.StatusOK, models.Document{ID: 8})
		}}
		h := newRouter(t, b)

		rec := postForm(h, "/admin/upload/url", url.Values{"url": {"https://example.com/a.pdf"}, "school": {""}, "year": {""}})
		n := noticeOf(t, rec)
		assert.Equal(t, "PDFファイルをダウンロードしました", n.Text)
		require.Len(t, b.forms, 1)
		assert.Equal(t, "https://example.com/a.pdf", b.forms[0].Get("url"))
		_, hasSchool := b.forms[0]["school"]
		assert.False(t, hasSchool)
	})

	t.Run("404 without detail", func(t *testing.T) {
		b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}}
		h := newRouter(t, b)

		rec := postForm(h, "/admin/upload/url", url.Values{"url": {"https://example.com/missing.pdf"}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "指定されたURLのPDFファイルが見つかりません。")
	})
}

func TestCrawl(t *testing.T) {
	t.Run("partial success", func(t *testing.T) {
		b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
			web.WriteJSON(w, http.StatusOK, models.CrawlResult{Message: "完了", TotalFound: 5, SuccessfullySaved: 3, FailedSaves: []string{"x"}})
		}}
		h := newRouter(t, b)

		n := noticeOf(t, postForm(h, "/admin/upload/crawl", url.Values{"url": {"https://example.com/kakomon/"}, "subject": {"math"}}))
		assert.Equal(t, web.NoticeSuccess, n.Kind)
		assert.Contains(t, n.Text, "3")
		assert.Contains(t, n.Text, "5")
		assert.Equal(t, []string{"POST /crawl_pdfs/"}, b.calls)
	})

	t.Run("nothing found detail", func(t *testing.T) {
		b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
			web.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "PDFファイルが見つかりませんでした"})
		}}
		h := newRouter(t, b)

		rec := postForm(h, "/admin/upload/crawl", url.Values{"url": {"https://example.com/"}})
		assert.Contains(t, rec.Body.String(), noPDFsMessage)
	})

	t.Run("bad subject", func(t *testing.T) {
		b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {}}
		h := newRouter(t, b)

		rec := postForm(h, "/admin/upload/crawl", url.Values{"url": {"https://example.com/"}, "subject": {"music"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "教科の指定が正しくありません")
		assert.Empty(t, b.calls)
	})
}

func TestView(t *testing.T) {
	b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pdfs/3" {
			web.WriteJSON(w, http.StatusOK, models.Document{ID: 3, School: "開成", Subject: "math", Year: 2023, Filename: "kaisei.pdf"})
			return
		}
		web.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "PDF not found"})
	}}
	h := newRouter(t, b)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdfs/3/view", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/pdfs/3/view")
	assert.Contains(t, rec.Body.String(), "算数")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdfs/99/view", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDFが見つかりません")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdfs/abc/view", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEdit(t *testing.T) {
	var body string
	b := &backend{handler: func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		web.WriteJSON(w, http.StatusOK, models.Document{ID: 4})
	}}
	h := newRouter(t, b)

	rec := postForm(h, "/admin/pdfs/4/edit", url.Values{"school": {"麻布"}, "subject": {"science"}, "year": {"2021"}})
	n := noticeOf(t, rec)
	assert.Equal(t, web.NoticeSuccess, n.Kind)
	assert.Contains(t, rec.Header().Get("Location"), "/admin/pdfs/4/questions")
	assert.Equal(t, []string{"PUT /pdfs/4"}, b.calls)
	assert.JSONEq(t, `{"school":"麻布","subject":"science","year":2021}`, body)

	rec = postForm(h, "/admin/pdfs/4/edit", url.Values{"school": {""}, "subject": {"science"}})
	n = noticeOf(t, rec)
	assert.Equal(t, web.NoticeError, n.Kind)
	assert.Equal(t, "学校名を入力してください", n.Text)
	assert.Len(t, b.calls, 1)
}
