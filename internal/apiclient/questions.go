package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kakomon/admin/internal/models"
)

func (c *Client) ListQuestionTypes(ctx context.Context) ([]models.QuestionType, error) {
	var types []models.QuestionType
	if err := c.getJSON(ctx, "list_question_types", "/question-types/", &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (c *Client) GetQuestionType(ctx context.Context, id int64) (*models.QuestionType, error) {
	var qt models.QuestionType
	if err := c.getJSON(ctx, "get_question_type", fmt.Sprintf("/question-types/%d", id), &qt); err != nil {
		return nil, err
	}
	return &qt, nil
}

func (c *Client) CreateQuestionType(ctx context.Context, in models.QuestionTypeCreate) (*models.QuestionType, error) {
	var qt models.QuestionType
	if err := c.sendJSON(ctx, "create_question_type", http.MethodPost, "/question-types/", in, &qt); err != nil {
		return nil, err
	}
	return &qt, nil
}

func (c *Client) ListQuestions(ctx context.Context) ([]models.Question, error) {
	var qs []models.Question
	if err := c.getJSON(ctx, "list_questions", "/questions/", &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func (c *Client) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	var q models.Question
	if err := c.getJSON(ctx, "get_question", fmt.Sprintf("/questions/%d", id), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) ListQuestionsByDocument(ctx context.Context, pdfID int64) ([]models.Question, error) {
	var qs []models.Question
	if err := c.getJSON(ctx, "list_pdf_questions", fmt.Sprintf("/pdfs/%d/questions", pdfID), &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func (c *Client) CreateQuestion(ctx context.Context, in models.QuestionCreate) (*models.Question, error) {
	var q models.Question
	if err := c.sendJSON(ctx, "create_question", http.MethodPost, "/questions/", in, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, id int64, in models.QuestionUpdate) (*models.Question, error) {
	var q models.Question
	if err := c.sendJSON(ctx, "update_question", http.MethodPut, fmt.Sprintf("/questions/%d", id), in, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	return c.send(ctx, request{op: "delete_question", method: http.MethodDelete, path: fmt.Sprintf("/questions/%d", id)}, nil)
}
