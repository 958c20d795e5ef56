package questions

import (
	"strconv"
	"strings"

	"github.com/kakomon/admin/internal/models"
)

// Draft is a question typed or pasted into the manager before it is sent to
// the backend.
type Draft struct {
	QuestionNumber  string
	QuestionText    string
	AnswerText      string
	DifficultyLevel int
	Points          int
	PageNumber      int
	QuestionTypeID  int64
	Keywords        string
}

// NewDraft has the defaults of an untouched batch row.
func NewDraft() Draft {
	return Draft{DifficultyLevel: 1, Points: 0, PageNumber: 1, QuestionTypeID: 1}
}

// Blank reports whether the draft lacks a number or text. Blank drafts are
// skipped on submit.
func (d Draft) Blank() bool {
	return strings.TrimSpace(d.QuestionNumber) == "" || strings.TrimSpace(d.QuestionText) == ""
}

func (d Draft) create(pdfID int64) models.QuestionCreate {
	c := models.QuestionCreate{
		PDFID:          pdfID,
		QuestionTypeID: d.QuestionTypeID,
		QuestionNumber: strings.TrimSpace(d.QuestionNumber),
		QuestionText:   d.QuestionText,
	}
	difficulty, points, page := d.DifficultyLevel, d.Points, d.PageNumber
	c.DifficultyLevel = &difficulty
	c.Points = &points
	c.PageNumber = &page
	if d.AnswerText != "" {
		answer := d.AnswerText
		c.AnswerText = &answer
	}
	if d.Keywords != "" {
		keywords := d.Keywords
		c.Keywords = &keywords
	}
	return c
}

// update sends every editable field so cleared cells overwrite the stored
// values.
func (d Draft) update() models.QuestionUpdate {
	number, text := strings.TrimSpace(d.QuestionNumber), d.QuestionText
	answer, keywords := d.AnswerText, d.Keywords
	difficulty, points, page, typeID := d.DifficultyLevel, d.Points, d.PageNumber, d.QuestionTypeID
	return models.QuestionUpdate{
		QuestionTypeID:  &typeID,
		QuestionNumber:  &number,
		QuestionText:    &text,
		AnswerText:      &answer,
		DifficultyLevel: &difficulty,
		Points:          &points,
		PageNumber:      &page,
		Keywords:        &keywords,
	}
}

// DraftFrom fills a draft from a stored question, using the row defaults for
// fields the backend left empty.
func DraftFrom(q models.Question) Draft {
	d := NewDraft()
	d.QuestionNumber = q.QuestionNumber
	d.QuestionText = q.QuestionText
	if q.QuestionTypeID > 0 {
		d.QuestionTypeID = q.QuestionTypeID
	}
	if q.AnswerText != nil {
		d.AnswerText = *q.AnswerText
	}
	if q.DifficultyLevel != nil {
		d.DifficultyLevel = *q.DifficultyLevel
	}
	if q.Points != nil {
		d.Points = *q.Points
	}
	if q.PageNumber != nil {
		d.PageNumber = *q.PageNumber
	}
	if q.Keywords != nil {
		d.Keywords = *q.Keywords
	}
	return d
}

// ParsePaste reads spreadsheet rows copied as tab-separated text. Columns are
// number, text, answer, difficulty, points, page, type id, keywords. Blank
// lines are dropped; missing or non-numeric cells take the row defaults and a
// missing number becomes the row's 1-based position.
func ParsePaste(text string) []Draft {
	var drafts []Draft
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		col := func(i int) string {
			if i < len(cols) {
				return cols[i]
			}
			return ""
		}

		d := Draft{
			QuestionNumber:  col(0),
			QuestionText:    col(1),
			AnswerText:      col(2),
			DifficultyLevel: intOr(col(3), 1),
			Points:          intOr(col(4), 0),
			PageNumber:      intOr(col(5), 1),
			QuestionTypeID:  int64(intOr(col(6), 1)),
			Keywords:        col(7),
		}
		if d.QuestionNumber == "" {
			d.QuestionNumber = strconv.Itoa(len(drafts) + 1)
		}
		drafts = append(drafts, d)
	}
	return drafts
}

// intOr parses the leading integer of s, as spreadsheets often carry units
// or decimals ("5点", "2.0"). Zero and unparsable cells yield def.
func intOr(s string, def int) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n == 0 {
		return def
	}
	return n
}
