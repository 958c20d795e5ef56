package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/kakomon/admin/internal/models"
)

// Upload is a local PDF to send to the backend.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
	URL      string
	Meta     models.DocumentMeta
}

func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := c.getJSON(ctx, "list_pdfs", "/pdfs/", &docs); err != nil {
		return nil, err
	}
	c.log.Sugar().Debugf("PDFs fetched successfully: %d items", len(docs))
	return docs, nil
}

func (c *Client) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	if err := c.getJSON(ctx, "get_pdf", fmt.Sprintf("/pdfs/%d", id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) UpdateDocument(ctx context.Context, id int64, update models.DocumentUpdate) (*models.Document, error) {
	var doc models.Document
	if err := c.sendJSON(ctx, "update_pdf", http.MethodPut, fmt.Sprintf("/pdfs/%d", id), update, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) GetDocumentWithQuestions(ctx context.Context, id int64) (*models.DocumentWithQuestions, error) {
	var doc models.DocumentWithQuestions
	if err := c.getJSON(ctx, "get_pdf_with_questions", fmt.Sprintf("/pdfs/%d/with-questions", id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ViewURL is where the browser fetches the PDF bytes.
func (c *Client) ViewURL(id int64) string {
	return fmt.Sprintf("%s/pdfs/%d/view", c.baseURL, id)
}

// UploadDocument validates the file locally, then posts it as multipart form.
func (c *Client) UploadDocument(ctx context.Context, u Upload) (*models.Document, error) {
	if err := ValidateUpload(u.Filename, u.Size); err != nil {
		return nil, err
	}
	if u.Content == nil {
		return nil, &ValidationError{Field: "file", Message: "ファイルを選択してください"}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", u.Filename)
	if err != nil {
		return nil, fmt.Errorf("upload_pdf: create form file: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(u.Content, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("upload_pdf: read file: %w", err)
	}
	if err := ValidateUpload(u.Filename, n); err != nil {
		return nil, err
	}
	if err := writeMeta(w, u.URL, u.Meta); err != nil {
		return nil, fmt.Errorf("upload_pdf: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("upload_pdf: close form: %w", err)
	}

	var doc models.Document
	err = c.send(ctx, request{
		op:          "upload_pdf",
		method:      http.MethodPost,
		path:        "/upload_pdf/",
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) DownloadFromURL(ctx context.Context, url string, meta models.DocumentMeta) (*models.Document, error) {
	if err := ValidateSourceURL(url); err != nil {
		return nil, err
	}
	body, contentType, err := sourceForm(url, meta)
	if err != nil {
		return nil, fmt.Errorf("download_pdf: %w", err)
	}
	var doc models.Document
	err = c.send(ctx, request{op: "download_pdf", method: http.MethodPost, path: "/download_pdf/", body: body, contentType: contentType}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CrawlSite asks the backend to collect every PDF linked from url. Partial
// success comes back as a result, not an error.
func (c *Client) CrawlSite(ctx context.Context, url string, meta models.DocumentMeta) (*models.CrawlResult, error) {
	if err := ValidateSourceURL(url); err != nil {
		return nil, err
	}
	body, contentType, err := sourceForm(url, meta)
	if err != nil {
		return nil, fmt.Errorf("crawl_pdfs: %w", err)
	}
	var result models.CrawlResult
	err = c.send(ctx, request{op: "crawl_pdfs", method: http.MethodPost, path: "/crawl_pdfs/", body: body, contentType: contentType}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// sourceForm builds the multipart body shared by download and crawl.
func sourceForm(url string, meta models.DocumentMeta) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeMeta(w, url, meta); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// writeMeta adds the url and metadata fields, leaving out empty ones. A year
// of zero or less means unknown and is not sent.
func writeMeta(w *multipart.Writer, url string, meta models.DocumentMeta) error {
	fields := [][2]string{
		{"url", url},
		{"school", meta.School},
		{"subject", meta.Subject},
	}
	if meta.Year > 0 {
		fields = append(fields, [2]string{"year", strconv.Itoa(meta.Year)})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	return nil
}
