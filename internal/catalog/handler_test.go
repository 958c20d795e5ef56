package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/auth"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

type fakeLister struct {
	docs []models.Document
	err  error
}

func (f fakeLister) ListDocuments(context.Context) ([]models.Document, error) { return f.docs, f.err }

var handlerDocs = []models.Document{
	{ID: 1, School: "開成", Subject: "math", Year: 2023, Filename: "kaisei_2023_math.pdf"},
	{ID: 2, School: "開成", Subject: "japanese", Year: 2022, Filename: "kaisei_2022_jp.pdf"},
	{ID: 3, School: "麻布", Subject: "science", Year: 0, Filename: "azabu_sci.pdf"},
}

func serve(t *testing.T, lister DocumentLister, user *models.User, target string) *httptest.ResponseRecorder {
	t.Helper()
	render, err := web.NewRenderer("test", nil)
	require.NoError(t, err)
	h := NewHandler(lister, render, zap.NewNop())
	codec := auth.NewSessionCodec("k", "sess")

	mux := http.NewServeMux()
	mux.HandleFunc("/catalog", h.Page)
	mux.HandleFunc("/api/catalog", h.API)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != nil {
		token, err := codec.Encode(user)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "sess", Value: token})
	}
	rec := httptest.NewRecorder()
	auth.Middleware(codec, zap.NewNop())(mux).ServeHTTP(rec, req)
	return rec
}

func TestPage_CollapsedByDefault(t *testing.T) {
	rec := serve(t, fakeLister{docs: handlerDocs}, nil, "/catalog")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "開成")
	assert.Contains(t, body, "麻布")
	assert.Contains(t, body, "2022 - 2023")
	assert.NotContains(t, body, "kaisei_2023_math.pdf", "documents stay hidden until expanded")
	assert.NotContains(t, body, "/admin/upload", "guests get no admin controls")
}

func TestPage_ExpandedShowsDocuments(t *testing.T) {
	admin := &models.User{ID: 1, Username: "admin", Role: models.RoleAdmin}
	rec := serve(t, fakeLister{docs: handlerDocs}, admin, "/catalog?s=%E9%96%8B%E6%88%90&y=%E9%96%8B%E6%88%90-2023")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "kaisei_2023_math.pdf")
	assert.NotContains(t, body, "kaisei_2022_jp.pdf", "2022 is still collapsed")
	assert.Contains(t, body, "/admin/upload")
	assert.Contains(t, body, "/admin/pdfs/1/questions")
}

func TestPage_BackendError(t *testing.T) {
	err := &apiclient.NetworkError{Op: "list_pdfs", Err: errors.New("connection refused")}
	rec := serve(t, fakeLister{err: err}, nil, "/catalog")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "サーバーに接続できません")
}

func TestBuildPage_ToggleURLsKeepFilter(t *testing.T) {
	f := Filter{Subject: "math"}
	data := buildPage(handlerDocs, f, ViewState{})

	require.Len(t, data.Schools, 1)
	s := data.Schools[0]
	assert.Equal(t, "開成", s.Name)
	assert.False(t, s.Expanded)
	assert.Contains(t, s.ToggleURL, "subject=math")
	assert.Contains(t, s.ToggleURL, "s=%E9%96%8B%E6%88%90")
	assert.Equal(t, 3, data.Total)
	assert.Equal(t, 1, data.Matched)
}

func TestAPI(t *testing.T) {
	rec := serve(t, fakeLister{docs: handlerDocs}, nil, "/api/catalog?year=%E4%B8%8D%E6%98%8E")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Matched)
	require.Len(t, resp.Schools, 1)
	assert.Equal(t, "麻布", resp.Schools[0].Name)
	assert.Equal(t, models.UnknownYear, resp.Schools[0].Stats.YearRange)
	assert.Equal(t, []string{"2023", "2022", models.UnknownYear}, resp.Years)
}

func TestAPI_BackendError(t *testing.T) {
	rec := serve(t, fakeLister{err: &apiclient.ServerError{Op: "list_pdfs", Status: 500}}, nil, "/api/catalog")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}
