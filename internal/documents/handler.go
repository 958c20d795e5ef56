package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/auth"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

// DocumentAPI is the slice of the API client these pages use.
type DocumentAPI interface {
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	UpdateDocument(ctx context.Context, id int64, update models.DocumentUpdate) (*models.Document, error)
	UploadDocument(ctx context.Context, u apiclient.Upload) (*models.Document, error)
	DownloadFromURL(ctx context.Context, url string, meta models.DocumentMeta) (*models.Document, error)
	CrawlSite(ctx context.Context, url string, meta models.DocumentMeta) (*models.CrawlResult, error)
	ViewURL(id int64) string
}

type Handler struct {
	api      DocumentAPI
	render   *web.Renderer
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func NewHandler(api DocumentAPI, render *web.Renderer, log *zap.Logger) *Handler {
	return &Handler{
		api:      api,
		render:   render,
		validate: validator.New(),
		log:      log.Named("documents"),
		now:      time.Now,
	}
}

type uploadData struct {
	URL  string
	Meta models.DocumentMeta
}

func (h *Handler) renderUpload(w http.ResponseWriter, r *http.Request, status int, n *web.Notice, data uploadData) {
	h.render.Render(w, status, "upload", web.Page{
		Title:  "PDFアップロード",
		User:   auth.CurrentUser(r.Context()),
		Notice: n,
		Data:   data,
	})
}

// UploadPage shows the three intake forms. The year defaults to this year.
func (h *Handler) UploadPage(w http.ResponseWriter, r *http.Request) {
	h.renderUpload(w, r, http.StatusOK, web.NoticeFromRequest(r), uploadData{
		Meta: models.DocumentMeta{Year: h.now().Year()},
	})
}

// maxUploadBody leaves room for the multipart envelope and metadata fields.
const maxUploadBody = apiclient.MaxUploadSize + 1<<20

func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		msg := "アップロードに失敗しました。"
		if errors.As(err, &tooLarge) {
			msg = apiclient.UserMessage(apiclient.ValidateUpload("x.pdf", apiclient.MaxUploadSize+1), msg)
		}
		h.renderUpload(w, r, http.StatusBadRequest, web.ErrorNotice(msg), uploadData{})
		return
	}
	defer r.MultipartForm.RemoveAll()

	meta, err := readMeta(r)
	if err == nil {
		err = h.validate.Struct(meta)
	}
	if err != nil {
		h.renderUpload(w, r, http.StatusBadRequest, web.ErrorNotice(validationMessage(err)), uploadData{Meta: meta.meta()})
		return
	}

	up := apiclient.Upload{URL: strings.TrimSpace(r.FormValue("url")), Meta: meta.meta()}
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		h.renderUpload(w, r, http.StatusBadRequest, web.ErrorNotice("ファイルを読み込めませんでした"), uploadData{Meta: up.Meta})
		return
	default:
		defer file.Close()
		up.Filename, up.Size, up.Content = header.Filename, header.Size, file
	}

	doc, err := h.api.UploadDocument(r.Context(), up)
	if err != nil {
		h.log.Warn("upload failed", zap.String("filename", up.Filename), zap.Error(err))
		h.renderUpload(w, r, statusFor(err), web.ErrorNotice(uploadErrorMessage(err)), uploadData{Meta: up.Meta})
		return
	}
	h.log.Info("uploaded", zap.Int64("id", doc.ID), zap.String("filename", doc.Filename))
	web.RedirectWithNotice(w, r, "/admin/upload", web.SuccessNotice("PDFファイルをアップロードしました"))
}

// readSource validates a download or crawl form.
func (h *Handler) readSource(r *http.Request) (sourceInput, error) {
	in := sourceInput{URL: strings.TrimSpace(r.FormValue("url"))}
	if err := apiclient.ValidateSourceURL(in.URL); err != nil {
		return in, err
	}
	meta, err := readMeta(r)
	if err != nil {
		return in, err
	}
	in.Meta = meta
	if err := h.validate.Struct(in); err != nil {
		return in, errors.New(validationMessage(err))
	}
	return in, nil
}

func (h *Handler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	in, err := h.readSource(r)
	if err != nil {
		h.renderUpload(w, r, http.StatusBadRequest, web.ErrorNotice(apiclient.UserMessage(err, err.Error())), uploadData{URL: in.URL, Meta: in.Meta.meta()})
		return
	}

	doc, err := h.api.DownloadFromURL(r.Context(), in.URL, in.Meta.meta())
	if err != nil {
		h.log.Warn("download failed", zap.String("url", in.URL), zap.Error(err))
		h.renderUpload(w, r, statusFor(err), web.ErrorNotice(downloadErrorMessage(err)), uploadData{URL: in.URL, Meta: in.Meta.meta()})
		return
	}
	h.log.Info("downloaded", zap.Int64("id", doc.ID), zap.String("url", in.URL))
	web.RedirectWithNotice(w, r, "/admin/upload", web.SuccessNotice("PDFファイルをダウンロードしました"))
}

func (h *Handler) Crawl(w http.ResponseWriter, r *http.Request) {
	in, err := h.readSource(r)
	if err != nil {
		h.renderUpload(w, r, http.StatusBadRequest, web.ErrorNotice(apiclient.UserMessage(err, err.Error())), uploadData{URL: in.URL, Meta: in.Meta.meta()})
		return
	}

	res, err := h.api.CrawlSite(r.Context(), in.URL, in.Meta.meta())
	if err != nil {
		h.log.Warn("crawl failed", zap.String("url", in.URL), zap.Error(err))
		h.renderUpload(w, r, statusFor(err), web.ErrorNotice(crawlErrorMessage(err)), uploadData{URL: in.URL, Meta: in.Meta.meta()})
		return
	}
	if len(res.FailedSaves) > 0 {
		h.log.Warn("some crawled PDFs were not saved", zap.Strings("failed", res.FailedSaves))
	}
	web.RedirectWithNotice(w, r, "/admin/upload", CrawlNotice(res))
}

type viewerData struct {
	Document *models.Document
	ViewURL  string
}

// View shows one document with the backend's PDF stream embedded.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.render.Render(w, http.StatusBadRequest, "error", web.Page{Title: "Invalid PDF ID", User: user})
		return
	}

	doc, err := h.api.GetDocument(r.Context(), id)
	if err != nil {
		status := statusFor(err)
		title := "PDFの読み込みに失敗しました"
		if status == http.StatusNotFound {
			title = "PDFが見つかりません"
		}
		h.render.Render(w, status, "error", web.Page{Title: title, User: user, Notice: web.ErrorNotice(apiclient.UserMessage(err, title))})
		return
	}
	h.render.Render(w, http.StatusOK, "viewer", web.Page{
		Title: doc.Filename,
		User:  user,
		Data:  viewerData{Document: doc, ViewURL: h.api.ViewURL(doc.ID)},
	})
}

// Edit updates a document's school, subject and year from the question
// manager page.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}
	back := fmt.Sprintf("/admin/pdfs/%d/questions", id)

	year, err := parseYear(r.FormValue("year"))
	if err != nil {
		web.RedirectWithNotice(w, r, back, web.ErrorNotice(err.Error()))
		return
	}
	in := editInput{
		School:  strings.TrimSpace(r.FormValue("school")),
		Subject: r.FormValue("subject"),
		Year:    year,
	}
	if err := h.validate.Struct(in); err != nil {
		web.RedirectWithNotice(w, r, back, web.ErrorNotice(validationMessage(err)))
		return
	}

	update := models.DocumentUpdate{School: &in.School, Subject: &in.Subject}
	if in.Year > 0 {
		update.Year = &in.Year
	}
	if _, err := h.api.UpdateDocument(r.Context(), id, update); err != nil {
		h.log.Warn("update failed", zap.Int64("id", id), zap.Error(err))
		web.RedirectWithNotice(w, r, back, web.ErrorNotice(apiclient.UserMessage(err, "PDF情報の更新に失敗しました")))
		return
	}
	web.RedirectWithNotice(w, r, back, web.SuccessNotice("PDF情報を更新しました"))
}

// statusFor picks the status of the re-rendered page after a failed call.
func statusFor(err error) int {
	var (
		ve *apiclient.ValidationError
		se *apiclient.ServerError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &se) && se.Status == http.StatusNotFound:
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
