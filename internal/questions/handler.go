package questions

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/auth"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

type Handler struct {
	service *Service
	render  *web.Renderer
	log     *zap.Logger
}

func NewHandler(service *Service, render *web.Renderer, log *zap.Logger) *Handler {
	return &Handler{service: service, render: render, log: log.Named("questions")}
}

type managerData struct {
	Document  models.DocumentWithQuestions
	Questions []models.Question
	Types     []models.QuestionType
	Paste     string
	Edit      *editView
}

// editView is the question open in the edit form.
type editView struct {
	ID int64
	Draft
}

func pdfID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func managerURL(id int64) string { return fmt.Sprintf("/admin/pdfs/%d/questions", id) }

func (h *Handler) renderManager(w http.ResponseWriter, r *http.Request, id int64, status int, n *web.Notice, paste string, edit *editView) {
	user := auth.CurrentUser(r.Context())
	view, err := h.service.Manager(r.Context(), id)
	if err != nil {
		h.log.Error("load manager", zap.Int64("pdf_id", id), zap.Error(err))
		status := http.StatusBadGateway
		var se *apiclient.ServerError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		h.render.Render(w, status, "error", web.Page{
			Title:  "問題データの取得に失敗しました",
			User:   user,
			Notice: web.ErrorNotice(apiclient.UserMessage(err, "問題データの取得に失敗しました")),
		})
		return
	}
	h.render.Render(w, status, "questions", web.Page{
		Title:  "問題管理",
		User:   user,
		Notice: n,
		Data: managerData{
			Document:  view.Document,
			Questions: view.Document.Questions,
			Types:     view.Types,
			Paste:     paste,
			Edit:      edit,
		},
	})
}

// Page is the question manager for one document.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	id, ok := pdfID(r)
	if !ok {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}
	h.renderManager(w, r, id, http.StatusOK, web.NoticeFromRequest(r), "", nil)
}

func draftFromForm(r *http.Request) Draft {
	d := NewDraft()
	d.QuestionNumber = strings.TrimSpace(r.FormValue("question_number"))
	d.QuestionText = r.FormValue("question_text")
	d.AnswerText = strings.TrimSpace(r.FormValue("answer_text"))
	d.Keywords = strings.TrimSpace(r.FormValue("keywords"))
	if v, err := strconv.Atoi(r.FormValue("difficulty_level")); err == nil {
		d.DifficultyLevel = v
	}
	if v, err := strconv.Atoi(r.FormValue("points")); err == nil {
		d.Points = v
	}
	if v, err := strconv.Atoi(r.FormValue("page_number")); err == nil {
		d.PageNumber = v
	}
	if v, err := strconv.ParseInt(r.FormValue("question_type_id"), 10, 64); err == nil {
		d.QuestionTypeID = v
	}
	return d
}

// Add creates one question from the manual form.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := pdfID(r)
	if !ok {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}
	if _, err := h.service.Create(r.Context(), id, draftFromForm(r)); err != nil {
		web.RedirectWithNotice(w, r, managerURL(id), web.ErrorNotice(apiclient.UserMessage(err, "問題の追加に失敗しました")))
		return
	}
	web.RedirectWithNotice(w, r, managerURL(id), web.SuccessNotice("問題を追加しました"))
}

// Batch parses the pasted rows and submits them in order. When nothing was
// created the paste is kept in the form so it can be fixed and resent.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	id, ok := pdfID(r)
	if !ok {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}
	paste := r.FormValue("paste")
	res := h.service.SubmitBatch(r.Context(), id, ParsePaste(paste))
	switch {
	case res.Err == nil:
		web.RedirectWithNotice(w, r, managerURL(id), web.SuccessNotice(res.Message()))
	case res.Submitted == 0:
		h.renderManager(w, r, id, http.StatusBadRequest, web.ErrorNotice(res.Message()), paste, nil)
	default:
		web.RedirectWithNotice(w, r, managerURL(id), web.ErrorNotice(res.Message()))
	}
}

func questionID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["qid"], 10, 64)
	return id, err == nil && id > 0
}

// EditPage shows the manager with one question loaded into the edit form.
func (h *Handler) EditPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pdfID(r)
	if !ok {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}
	qid, ok := questionID(r)
	if !ok {
		http.Error(w, "Invalid question ID", http.StatusBadRequest)
		return
	}
	q, err := h.service.Question(r.Context(), id, qid)
	if err != nil {
		web.RedirectWithNotice(w, r, managerURL(id), web.ErrorNotice(apiclient.UserMessage(err, "問題が見つかりません")))
		return
	}
	h.renderManager(w, r, id, http.StatusOK, web.NoticeFromRequest(r), "", &editView{ID: q.ID, Draft: DraftFrom(*q)})
}

// Update saves the edit form. A rejected draft is shown again as typed.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pdfID(r)
	if !ok {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}
	qid, ok := questionID(r)
	if !ok {
		http.Error(w, "Invalid question ID", http.StatusBadRequest)
		return
	}
	d := draftFromForm(r)
	if _, err := h.service.Update(r.Context(), id, qid, d); err != nil {
		h.renderManager(w, r, id, http.StatusBadRequest,
			web.ErrorNotice(apiclient.UserMessage(err, "問題の更新に失敗しました")), "", &editView{ID: qid, Draft: d})
		return
	}
	web.RedirectWithNotice(w, r, managerURL(id), web.SuccessNotice("問題を更新しました"))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pdfID(r)
	if !ok {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}
	qid, ok := questionID(r)
	if !ok {
		http.Error(w, "Invalid question ID", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), qid); err != nil {
		web.RedirectWithNotice(w, r, managerURL(id), web.ErrorNotice(apiclient.UserMessage(err, "問題の削除に失敗しました")))
		return
	}
	web.RedirectWithNotice(w, r, managerURL(id), web.SuccessNotice("問題を削除しました"))
}

// CreateType adds a question type and returns to the page named by "back".
func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	back := r.FormValue("back")
	if !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		back = "/catalog"
	}
	qt, err := h.service.CreateType(r.Context(), strings.TrimSpace(r.FormValue("name")), strings.TrimSpace(r.FormValue("description")))
	if err != nil {
		web.RedirectWithNotice(w, r, back, web.ErrorNotice(apiclient.UserMessage(err, "問題タイプの追加に失敗しました")))
		return
	}
	web.RedirectWithNotice(w, r, back, web.SuccessNotice("問題タイプ「"+qt.Name+"」を追加しました"))
}

const maxPageSize = 200

type questionListResponse struct {
	Questions []models.Question `json:"questions"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
}

// List returns a document's questions as JSON, paged with limit/offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pdfID(r)
	if !ok {
		web.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid PDF ID"})
		return
	}
	query := r.URL.Query()
	limit := intQueryParam(query, "limit", 50)
	offset := intQueryParam(query, "offset", 0)
	if limit == 0 {
		limit = 50
	}
	limit = min(limit, maxPageSize)

	view, err := h.service.Manager(r.Context(), id)
	if err != nil {
		web.WriteJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: apiclient.UserMessage(err, "Failed to list questions")})
		return
	}

	all := view.Document.Questions
	page := []models.Question{}
	if offset < len(all) {
		page = all[offset : offset+min(limit, len(all)-offset)]
	}
	web.WriteJSON(w, http.StatusOK, questionListResponse{
		Questions: page,
		Total:     len(all),
		Page:      offset/limit + 1,
		PageSize:  limit,
	})
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
