package analysis

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/auth"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

// ModalCookie names the browser key the tracker is indexed by.
const ModalCookie = "kakomon_modal"

type DocumentGetter interface {
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
}

type Handler struct {
	service *Service
	docs    DocumentGetter
	render  *web.Renderer
	log     *zap.Logger
}

func NewHandler(service *Service, docs DocumentGetter, render *web.Renderer, log *zap.Logger) *Handler {
	return &Handler{service: service, docs: docs, render: render, log: log.Named("analysis")}
}

// modalKey returns the browser's key, issuing one when absent.
func modalKey(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ModalCookie); err == nil && c.Value != "" {
		return c.Value
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ModalCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func existingKey(r *http.Request) string {
	if c, err := r.Cookie(ModalCookie); err == nil {
		return c.Value
	}
	return ""
}

// Start opens the modal for a document and kicks off the analysis.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid PDF ID", http.StatusBadRequest)
		return
	}

	doc := models.Document{ID: id, Filename: fmt.Sprintf("PDF %d", id)}
	if d, err := h.docs.GetDocument(r.Context(), id); err == nil {
		doc = *d
	} else {
		h.log.Warn("document lookup failed, analysing anyway", zap.Int64("pdf_id", id), zap.Error(err))
	}

	key := modalKey(w, r)
	modal := h.service.Start(key, doc)
	h.log.Info("analysis started", zap.Int64("pdf_id", id), zap.Uint64("generation", modal.Generation))
	http.Redirect(w, r, "/analysis", http.StatusSeeOther)
}

// Modal shows the open modal. While loading the page refreshes itself.
func (h *Handler) Modal(w http.ResponseWriter, r *http.Request) {
	modal, ok := h.service.Tracker().Get(existingKey(r))
	if !ok {
		http.Redirect(w, r, "/catalog", http.StatusSeeOther)
		return
	}
	h.render.Render(w, http.StatusOK, "analysis", web.Page{
		Title: "AI分析結果",
		User:  auth.CurrentUser(r.Context()),
		Data:  modal,
	})
}

// State returns the open modal as JSON for polling clients.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	modal, ok := h.service.Tracker().Get(existingKey(r))
	if !ok {
		web.WriteJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No analysis open"})
		return
	}
	web.WriteJSON(w, http.StatusOK, modal)
}

// Close dismisses the modal. A request still in flight is cancelled and its
// result discarded.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if key := existingKey(r); key != "" {
		h.service.Tracker().Close(key)
	}
	http.Redirect(w, r, "/catalog", http.StatusSeeOther)
}
