package models

import "strconv"

type Difficulty int

const (
	DifficultyEasy   Difficulty = 1
	DifficultyNormal Difficulty = 2
	DifficultyHard   Difficulty = 3
)

var difficultyLabels = map[Difficulty]string{
	DifficultyEasy:   "易しい",
	DifficultyNormal: "普通",
	DifficultyHard:   "難しい",
}

func (d Difficulty) Label() string {
	if l, ok := difficultyLabels[d]; ok {
		return l
	}
	return "-"
}

type QuestionType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}

type QuestionTypeCreate struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

type Question struct {
	ID              int64     `json:"id"`
	PDFID           int64     `json:"pdf_id"`
	QuestionTypeID  int64     `json:"question_type_id"`
	QuestionNumber  string    `json:"question_number"`
	QuestionText    string    `json:"question_text"`
	AnswerText      *string   `json:"answer_text,omitempty"`
	DifficultyLevel *int      `json:"difficulty_level,omitempty"`
	Points          *int      `json:"points,omitempty"`
	PageNumber      *int      `json:"page_number,omitempty"`
	ExtractedText   *string   `json:"extracted_text,omitempty"`
	Keywords        *string   `json:"keywords,omitempty"`
	CreatedAt       Timestamp `json:"created_at"`
}

type QuestionCreate struct {
	PDFID           int64   `json:"pdf_id" validate:"required,gt=0"`
	QuestionTypeID  int64   `json:"question_type_id" validate:"required,gt=0"`
	QuestionNumber  string  `json:"question_number" validate:"required"`
	QuestionText    string  `json:"question_text" validate:"required"`
	AnswerText      *string `json:"answer_text,omitempty"`
	DifficultyLevel *int    `json:"difficulty_level,omitempty" validate:"omitempty,min=1,max=3"`
	Points          *int    `json:"points,omitempty" validate:"omitempty,min=0"`
	PageNumber      *int    `json:"page_number,omitempty" validate:"omitempty,min=1"`
	ExtractedText   *string `json:"extracted_text,omitempty"`
	Keywords        *string `json:"keywords,omitempty"`
}

type QuestionUpdate struct {
	QuestionTypeID  *int64  `json:"question_type_id,omitempty"`
	QuestionNumber  *string `json:"question_number,omitempty"`
	QuestionText    *string `json:"question_text,omitempty"`
	AnswerText      *string `json:"answer_text,omitempty"`
	DifficultyLevel *int    `json:"difficulty_level,omitempty" validate:"omitempty,min=1,max=3"`
	Points          *int    `json:"points,omitempty"`
	PageNumber      *int    `json:"page_number,omitempty"`
	Keywords        *string `json:"keywords,omitempty"`
}

func itoa(n int) string { return strconv.Itoa(n) }
