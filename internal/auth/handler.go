package auth

import (
	"net/http"
	"strings"

	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

type Handler struct {
	render *web.Renderer
}

func NewHandler(render *web.Renderer) *Handler {
	return &Handler{render: render}
}

type loginData struct {
	Username string
	Next     string
}

// Home sends signed-in sessions (guest included) to the catalogue and shows
// the login form otherwise.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	m := FromContext(r.Context())
	if m == nil || m.State() == StateSignedOut {
		h.render.Render(w, http.StatusOK, "login", web.Page{Title: "ログイン", Notice: web.NoticeFromRequest(r), Data: loginData{}})
		return
	}
	http.Redirect(w, r, "/catalog", http.StatusSeeOther)
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "login", web.Page{
		Title:  "ログイン",
		User:   CurrentUser(r.Context()),
		Notice: web.NoticeFromRequest(r),
		Data:   loginData{Next: safeNext(r.URL.Query().Get("next"))},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, http.StatusBadRequest, "login", web.Page{Title: "ログイン", Notice: web.ErrorNotice("Invalid request body"), Data: loginData{}})
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	next := safeNext(r.PostFormValue("next"))

	m := FromContext(r.Context())
	if username == "" || password == "" {
		h.render.Render(w, http.StatusBadRequest, "login", web.Page{
			Title:  "ログイン",
			Notice: web.ErrorNotice("ユーザー名とパスワードを入力してください"),
			Data:   loginData{Username: username, Next: next},
		})
		return
	}
	if m == nil || !m.Login(username, password) {
		h.render.Render(w, http.StatusUnauthorized, "login", web.Page{
			Title:  "ログイン",
			Notice: web.ErrorNotice("ユーザー名またはパスワードが正しくありません"),
			Data:   loginData{Username: username, Next: next},
		})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) Guest(w http.ResponseWriter, r *http.Request) {
	if m := FromContext(r.Context()); m != nil {
		m.LoginAsGuest()
	}
	http.Redirect(w, r, "/catalog", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if m := FromContext(r.Context()); m != nil {
		m.Logout()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type sessionResponse struct {
	State State        `json:"state"`
	User  *models.User `json:"user"`
}

// Session reports the current session as JSON.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	m := FromContext(r.Context())
	if m == nil {
		web.WriteJSON(w, http.StatusOK, sessionResponse{State: StateSignedOut})
		return
	}
	web.WriteJSON(w, http.StatusOK, sessionResponse{State: m.State(), User: m.User()})
}

func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/catalog"
	}
	return next
}
