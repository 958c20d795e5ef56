package documents

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/web"
)

// ── Form inputs ───────────────────────────────────────

type metaInput struct {
	School  string `validate:"max=200"`
	Subject string `validate:"omitempty,oneof=math japanese science social unknown"`
	Year    int    `validate:"omitempty,min=1900,max=2100"`
}

func (m metaInput) meta() models.DocumentMeta {
	return models.DocumentMeta{School: m.School, Subject: m.Subject, Year: m.Year}
}

type sourceInput struct {
	URL  string `validate:"required,url"`
	Meta metaInput
}

type editInput struct {
	School  string `validate:"required,max=200"`
	Subject string `validate:"required,oneof=math japanese science social unknown"`
	Year    int    `validate:"omitempty,min=1900,max=2100"`
}

var errBadYear = errors.New("年度は数字で入力してください")

func parseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadYear
	}
	return y, nil
}

func readMeta(r *http.Request) (metaInput, error) {
	year, err := parseYear(r.FormValue("year"))
	if err != nil {
		return metaInput{}, err
	}
	return metaInput{
		School:  strings.TrimSpace(r.FormValue("school")),
		Subject: r.FormValue("subject"),
		Year:    year,
	}, nil
}

var fieldMessages = map[string]string{
	"URL.required":     "URLを入力してください",
	"URL.url":          "有効なURLを入力してください",
	"School.required":  "学校名を入力してください",
	"School.max":       "学校名が長すぎます",
	"Subject.required": "教科を選択してください",
	"Subject.oneof":    "教科の指定が正しくありません",
	"Year.min":         "年度は1900〜2100の範囲で入力してください",
	"Year.max":         "年度は1900〜2100の範囲で入力してください",
}

// validationMessage turns the first validator failure into a form message.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%sの入力が正しくありません", fe.Field())
}

// ── Outcome messages ──────────────────────────────────

// CrawlNotice reports a crawl that reached the backend. Partial success is a
// success; found-but-unsaved and found-nothing are errors.
func CrawlNotice(res *models.CrawlResult) *web.Notice {
	switch {
	case res.SuccessfullySaved > 0:
		return web.SuccessNotice(fmt.Sprintf("%s (%d/%d個成功)", res.Message, res.SuccessfullySaved, res.TotalFound))
	case res.TotalFound > 0:
		detail := "不明なエラー"
		if len(res.FailedSaves) > 0 {
			detail = strings.Join(res.FailedSaves, ", ")
		}
		return web.ErrorNotice("PDFファイルは見つかりましたが、保存に失敗しました。詳細: " + detail)
	default:
		return web.ErrorNotice(noPDFsMessage)
	}
}

const noPDFsMessage = "このWebサイトにはPDFファイルが含まれていないか、アクセスできない形式です。別のURLを試してください。"

func uploadErrorMessage(err error) string {
	return detailOr(err, apiclient.UserMessage(err, "アップロードに失敗しました。"))
}

func downloadErrorMessage(err error) string {
	var se *apiclient.ServerError
	if errors.As(err, &se) && se.Detail == "" {
		switch se.Status {
		case http.StatusMethodNotAllowed:
			return "Method Not Allowed: サーバーがこのリクエスト方法をサポートしていません。"
		case http.StatusNotFound:
			return "指定されたURLのPDFファイルが見つかりません。"
		case http.StatusBadRequest:
			return "リクエストが正しくありません。URLを確認してください。"
		}
	}
	return detailOr(err, apiclient.UserMessage(err, "ダウンロードに失敗しました。"))
}

// crawlErrorMessage rewrites the backend's crawl failure details into
// something actionable.
func crawlErrorMessage(err error) string {
	var se *apiclient.ServerError
	if errors.As(err, &se) && se.Detail != "" {
		switch d := se.Detail; {
		case strings.Contains(d, "PDFファイルが見つかりませんでした"):
			return noPDFsMessage
		case strings.Contains(d, "タイムアウト"):
			return "サイトへの接続がタイムアウトしました。サイトが応答していないか、ネットワーク接続に問題があります。"
		case strings.Contains(d, "HTML解析エラー"):
			return "サイトの構造が予期しない形式です。別のURLを試してください。"
		default:
			return d
		}
	}
	return apiclient.UserMessage(err, "クローリングに失敗しました。")
}

// detailOr prefers the backend's own detail text when there is one.
func detailOr(err error, fallback string) string {
	var se *apiclient.ServerError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return fallback
}
