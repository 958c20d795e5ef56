package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data every template receives.
type Page struct {
	Title       string
	User        *models.User
	Environment string
	Notice      *Notice
	Data        any
}

type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice is a dismissable inline message.
type Notice struct {
	Kind NoticeKind
	Text string
}

func ErrorNotice(text string) *Notice   { return &Notice{Kind: NoticeError, Text: text} }
func SuccessNotice(text string) *Notice { return &Notice{Kind: NoticeSuccess, Text: text} }

// Renderer holds one parsed template set per page, each combined with the
// shared layout.
type Renderer struct {
	pages       map[string]*template.Template
	environment string
	log         *zap.Logger
}

var funcs = template.FuncMap{
	"subjectLabel": models.SubjectLabel,
	"difficulty":   func(d *int) string { return difficultyLabel(d) },
	"deref": func(p any) any {
		switch v := p.(type) {
		case *string:
			if v == nil {
				return ""
			}
			return *v
		case *int:
			if v == nil {
				return ""
			}
			return *v
		}
		return p
	},
	"subjects": func() []models.Subject { return models.Subjects },
	"nl2br": func(s string) template.HTML {
		return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
	},
	"query": func(base string, q url.Values) string {
		if len(q) == 0 {
			return base
		}
		return base + "?" + q.Encode()
	},
}

func difficultyLabel(d *int) string {
	if d == nil {
		return "-"
	}
	return models.Difficulty(*d).Label()
}

func NewRenderer(environment string, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Renderer{
		pages:       make(map[string]*template.Template),
		environment: environment,
		log:         log.Named("render"),
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		if name == "layout" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", f)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the named page with the given status.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) {
	t, ok := r.pages[name]
	if !ok {
		r.log.Error("unknown template", zap.String("name", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if p.Environment == "" {
		p.Environment = r.environment
	}

	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		r.log.Error("render failed", zap.String("name", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RedirectWithNotice sends the browser to target carrying the notice in the
// query string, where NoticeFromRequest picks it up.
func RedirectWithNotice(w http.ResponseWriter, r *http.Request, target string, n *Notice) {
	u, err := url.Parse(target)
	if err != nil {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	if n != nil {
		q := u.Query()
		q.Set("notice", n.Text)
		q.Set("kind", string(n.Kind))
		u.RawQuery = q.Encode()
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

func NoticeFromRequest(r *http.Request) *Notice {
	text := r.URL.Query().Get("notice")
	if text == "" {
		return nil
	}
	kind := NoticeKind(r.URL.Query().Get("kind"))
	if kind != NoticeSuccess {
		kind = NoticeError
	}
	return &Notice{Kind: kind, Text: text}
}
