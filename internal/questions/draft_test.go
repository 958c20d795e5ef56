package questions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakomon/admin/internal/models"
)

func TestParsePaste(t *testing.T) {
	paste := "1\t次の計算をしなさい\t42\t2\t5\t3\t2\t計算\n" +
		"\n" +
		"\t漢字の読み\r\n" +
		"3\t図形\t\tx\t\t0\n"

	drafts := ParsePaste(paste)
	require.Len(t, drafts, 3)

	assert.Equal(t, Draft{
		QuestionNumber:  "1",
		QuestionText:    "次の計算をしなさい",
		AnswerText:      "42",
		DifficultyLevel: 2,
		Points:          5,
		PageNumber:      3,
		QuestionTypeID:  2,
		Keywords:        "計算",
	}, drafts[0])

	// missing number falls back to the row position among non-blank rows
	assert.Equal(t, "2", drafts[1].QuestionNumber)
	assert.Equal(t, "漢字の読み", drafts[1].QuestionText)
	assert.Equal(t, 1, drafts[1].DifficultyLevel)
	assert.Equal(t, 0, drafts[1].Points)
	assert.Equal(t, 1, drafts[1].PageNumber)
	assert.Equal(t, int64(1), drafts[1].QuestionTypeID)

	assert.Equal(t, "3", drafts[2].QuestionNumber)
	assert.Equal(t, 1, drafts[2].DifficultyLevel, "non-numeric difficulty uses the default")
	assert.Equal(t, 1, drafts[2].PageNumber, "zero page uses the default")
}

func TestParsePaste_Empty(t *testing.T) {
	assert.Empty(t, ParsePaste(""))
	assert.Empty(t, ParsePaste("\n  \n\t\n"))
}

func TestIntOr(t *testing.T) {
	tests := []struct {
		in   string
		def  int
		want int
	}{
		{"5", 0, 5},
		{" 7 ", 0, 7},
		{"5点", 0, 5},
		{"2.0", 1, 2},
		{"", 1, 1},
		{"abc", 1, 1},
		{"0", 1, 1},
		{"-3", 0, -3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, intOr(tt.in, tt.def), "intOr(%q)", tt.in)
	}
}

func TestDraftBlank(t *testing.T) {
	assert.True(t, NewDraft().Blank())
	assert.True(t, Draft{QuestionNumber: "1", QuestionText: "  "}.Blank())
	assert.True(t, Draft{QuestionText: "x"}.Blank())
	assert.False(t, Draft{QuestionNumber: "1", QuestionText: "x"}.Blank())
}

func TestDraftCreate(t *testing.T) {
	d := NewDraft()
	d.QuestionNumber, d.QuestionText = " 1-2 ", "本文"
	c := d.create(9)

	assert.Equal(t, int64(9), c.PDFID)
	assert.Equal(t, "1-2", c.QuestionNumber)
	assert.Nil(t, c.AnswerText)
	assert.Nil(t, c.Keywords)
	require.NotNil(t, c.DifficultyLevel)
	assert.Equal(t, 1, *c.DifficultyLevel)
	assert.Equal(t, 0, *c.Points)
	assert.Equal(t, 1, *c.PageNumber)
}

func TestDraftFromQuestion(t *testing.T) {
	answer, points := "ア", 4
	d := DraftFrom(models.Question{ID: 3, QuestionNumber: "5", QuestionText: "本文", AnswerText: &answer, Points: &points})

	assert.Equal(t, "5", d.QuestionNumber)
	assert.Equal(t, "ア", d.AnswerText)
	assert.Equal(t, 4, d.Points)
	assert.Equal(t, 1, d.DifficultyLevel, "missing fields keep the row defaults")
	assert.Equal(t, 1, d.PageNumber)
	assert.Equal(t, int64(1), d.QuestionTypeID)

	u := d.update()
	require.NotNil(t, u.Keywords)
	assert.Equal(t, "", *u.Keywords, "cleared fields are sent so they overwrite")
	assert.Equal(t, "本文", *u.QuestionText)
}
