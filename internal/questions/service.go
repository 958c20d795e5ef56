package questions

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/models"
)

// QuestionAPI is the slice of the API client the question manager uses.
type QuestionAPI interface {
	GetDocumentWithQuestions(ctx context.Context, id int64) (*models.DocumentWithQuestions, error)
	ListQuestionTypes(ctx context.Context) ([]models.QuestionType, error)
	CreateQuestionType(ctx context.Context, in models.QuestionTypeCreate) (*models.QuestionType, error)
	GetQuestion(ctx context.Context, id int64) (*models.Question, error)
	CreateQuestion(ctx context.Context, in models.QuestionCreate) (*models.Question, error)
	UpdateQuestion(ctx context.Context, id int64, in models.QuestionUpdate) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
}

type Service struct {
	api      QuestionAPI
	validate *validator.Validate
	log      *zap.Logger
}

func NewService(api QuestionAPI, log *zap.Logger) *Service {
	return &Service{api: api, validate: validator.New(), log: log.Named("questions")}
}

// ManagerView is everything the question manager page shows.
type ManagerView struct {
	Document models.DocumentWithQuestions
	Types    []models.QuestionType
}

// Manager loads the document with its questions and the question types in
// parallel.
func (s *Service) Manager(ctx context.Context, pdfID int64) (*ManagerView, error) {
	var (
		view ManagerView
		doc  *models.DocumentWithQuestions
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = s.api.GetDocumentWithQuestions(gctx, pdfID)
		return err
	})
	g.Go(func() error {
		var err error
		view.Types, err = s.api.ListQuestionTypes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	view.Document = *doc
	if view.Document.Questions == nil {
		view.Document.Questions = []models.Question{}
	}
	return &view, nil
}

var fieldMessages = map[string]string{
	"QuestionNumber":  "問題番号を入力してください",
	"QuestionText":    "問題文を入力してください",
	"QuestionTypeID":  "問題タイプを選択してください",
	"DifficultyLevel": "難易度は1〜3で指定してください",
	"Points":          "配点は0以上で指定してください",
	"PageNumber":      "ページは1以上で指定してください",
	"PDFID":           "PDFが指定されていません",
}

func (s *Service) check(in models.QuestionCreate) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		if msg, ok := fieldMessages[ve[0].Field()]; ok {
			return &apiclient.ValidationError{Field: ve[0].Field(), Message: msg}
		}
	}
	return &apiclient.ValidationError{Field: "question", Message: err.Error()}
}

// Create adds one manually entered question.
func (s *Service) Create(ctx context.Context, pdfID int64, d Draft) (*models.Question, error) {
	in := d.create(pdfID)
	if err := s.check(in); err != nil {
		return nil, err
	}
	q, err := s.api.CreateQuestion(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("question added", zap.Int64("pdf_id", pdfID), zap.Int64("id", q.ID))
	return q, nil
}

// ErrQuestionNotFound means the question does not belong to the document
// being managed.
var ErrQuestionNotFound = errors.New("question not found for this PDF")

// Question loads one question of the document pdfID.
func (s *Service) Question(ctx context.Context, pdfID, id int64) (*models.Question, error) {
	q, err := s.api.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.PDFID != pdfID {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

// Update overwrites an existing question with the edited draft. The draft is
// held to the same rules as a new question.
func (s *Service) Update(ctx context.Context, pdfID, id int64, d Draft) (*models.Question, error) {
	if err := s.check(d.create(pdfID)); err != nil {
		return nil, err
	}
	q, err := s.api.UpdateQuestion(ctx, id, d.update())
	if err != nil {
		return nil, err
	}
	s.log.Info("question updated", zap.Int64("pdf_id", pdfID), zap.Int64("id", id))
	return q, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.log.Info("question deleted", zap.Int64("id", id))
	return nil
}

func (s *Service) CreateType(ctx context.Context, name, description string) (*models.QuestionType, error) {
	in := models.QuestionTypeCreate{Name: name}
	if description != "" {
		in.Description = &description
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, &apiclient.ValidationError{Field: "name", Message: "問題タイプ名を入力してください"}
	}
	return s.api.CreateQuestionType(ctx, in)
}

// ErrNoDrafts means every draft in a batch was blank.
var ErrNoDrafts = &apiclient.ValidationError{Field: "questions", Message: "少なくとも1つの問題を入力してください"}

// BatchResult reports how far a batch got. Questions created before a
// failure stay created.
type BatchResult struct {
	Submitted int
	Skipped   int
	Failed    *Draft
	Err       error
}

func (r BatchResult) Message() string {
	switch {
	case r.Err == nil:
		return fmt.Sprintf("%d個の問題を追加しました", r.Submitted)
	case r.Failed == nil:
		return apiclient.UserMessage(r.Err, "問題の追加に失敗しました")
	case r.Submitted == 0:
		return fmt.Sprintf("問題の追加に失敗しました (問題%s: %s)", r.Failed.QuestionNumber, apiclient.UserMessage(r.Err, r.Err.Error()))
	}
	return fmt.Sprintf("%d個の問題を追加しましたが、問題%sで失敗しました: %s",
		r.Submitted, r.Failed.QuestionNumber, apiclient.UserMessage(r.Err, r.Err.Error()))
}

// SubmitBatch drops blank drafts, checks the rest, then creates them one at a
// time in order, stopping at the first failure.
func (s *Service) SubmitBatch(ctx context.Context, pdfID int64, drafts []Draft) BatchResult {
	var (
		res     BatchResult
		pending []Draft
	)
	for _, d := range drafts {
		if d.Blank() {
			res.Skipped++
			continue
		}
		pending = append(pending, d)
	}
	if len(pending) == 0 {
		res.Err = ErrNoDrafts
		return res
	}
	for i := range pending {
		if err := s.check(pending[i].create(pdfID)); err != nil {
			res.Failed, res.Err = &pending[i], err
			return res
		}
	}

	for i := range pending {
		if _, err := s.api.CreateQuestion(ctx, pending[i].create(pdfID)); err != nil {
			s.log.Warn("batch stopped",
				zap.Int64("pdf_id", pdfID),
				zap.Int("submitted", res.Submitted),
				zap.String("question_number", pending[i].QuestionNumber),
				zap.Error(err),
			)
			res.Failed, res.Err = &pending[i], err
			return res
		}
		res.Submitted++
	}
	s.log.Info("batch added", zap.Int64("pdf_id", pdfID), zap.Int("count", res.Submitted))
	return res
}
