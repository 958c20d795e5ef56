package catalog

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/auth"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

// DocumentLister is the part of the API client the list page needs.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
}

type Handler struct {
	docs   DocumentLister
	render *web.Renderer
	log    *zap.Logger
}

func NewHandler(docs DocumentLister, render *web.Renderer, log *zap.Logger) *Handler {
	return &Handler{docs: docs, render: render, log: log.Named("catalog")}
}

// ── View model ────────────────────────────────────────

type pageData struct {
	IsAdmin     bool
	Filter      Filter
	YearOptions []string
	Total       int
	Matched     int
	Schools     []schoolView
}

type schoolView struct {
	Name      string
	Total     int
	Stats     SchoolStats
	Expanded  bool
	ToggleURL string
	Years     []yearView
}

type yearView struct {
	Year      string
	Count     int
	Expanded  bool
	ToggleURL string
	Documents []models.Document
}

func filterFromQuery(q url.Values) Filter {
	return Filter{Search: q.Get("q"), Subject: q.Get("subject"), Year: q.Get("year")}
}

func (f Filter) encode(q url.Values) {
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.Subject != "" {
		q.Set("subject", f.Subject)
	}
	if f.Year != "" {
		q.Set("year", f.Year)
	}
}

func pageURL(f Filter, v ViewState) string {
	q := url.Values{}
	f.encode(q)
	v.Encode(q)
	if len(q) == 0 {
		return "/catalog"
	}
	return "/catalog?" + q.Encode()
}

func buildPage(docs []models.Document, f Filter, v ViewState) pageData {
	tree := Group(docs, f)
	data := pageData{
		Filter:      f,
		YearOptions: YearOptions(docs),
		Total:       len(docs),
		Matched:     tree.Total,
		Schools:     make([]schoolView, 0, len(tree.Schools)),
	}
	for _, s := range tree.Schools {
		sv := schoolView{
			Name:      s.Name,
			Total:     s.Total,
			Stats:     Stats(s),
			Expanded:  v.SchoolExpanded(s.Name),
			ToggleURL: pageURL(f, ToggleSchool(v, s.Name)),
		}
		for _, y := range s.Years {
			sv.Years = append(sv.Years, yearView{
				Year:      y.Year,
				Count:     len(y.Documents),
				Expanded:  v.YearExpanded(s.Name, y.Year),
				ToggleURL: pageURL(f, ToggleYear(v, s.Name, y.Year)),
				Documents: y.Documents,
			})
		}
		data.Schools = append(data.Schools, sv)
	}
	return data
}

// ── Handlers ──────────────────────────────────────────

// Page renders the grouped list. Filter and expansion state live in the
// query string.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	q := r.URL.Query()
	f := filterFromQuery(q)
	v := DecodeViewState(q)

	notice := web.NoticeFromRequest(r)
	docs, err := h.docs.ListDocuments(r.Context())
	if err != nil {
		h.log.Error("list documents", zap.Error(err))
		notice = web.ErrorNotice(apiclient.UserMessage(err, "PDF一覧の取得に失敗しました"))
		docs = nil
	}

	data := buildPage(docs, f, v)
	data.IsAdmin = user.IsAdmin()
	h.render.Render(w, http.StatusOK, "catalog", web.Page{
		Title:  "過去問一覧",
		User:   user,
		Notice: notice,
		Data:   data,
	})
}

type schoolResponse struct {
	SchoolGroup
	Stats SchoolStats `json:"stats"`
}

type catalogResponse struct {
	Filter  Filter           `json:"filter"`
	Total   int              `json:"total"`
	Matched int              `json:"matched"`
	Years   []string         `json:"year_options"`
	Schools []schoolResponse `json:"schools"`
}

// API returns the same grouping as JSON.
func (h *Handler) API(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r.URL.Query())
	docs, err := h.docs.ListDocuments(r.Context())
	if err != nil {
		h.log.Error("list documents", zap.Error(err))
		web.WriteJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: apiclient.UserMessage(err, "PDF一覧の取得に失敗しました")})
		return
	}

	tree := Group(docs, f)
	resp := catalogResponse{
		Filter:  f,
		Total:   len(docs),
		Matched: tree.Total,
		Years:   YearOptions(docs),
		Schools: make([]schoolResponse, 0, len(tree.Schools)),
	}
	for _, s := range tree.Schools {
		resp.Schools = append(resp.Schools, schoolResponse{SchoolGroup: s, Stats: Stats(s)})
	}
	web.WriteJSON(w, http.StatusOK, resp)
}
