package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/models"
)

// Analyzer runs the backend analysis for one document.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, id int64) (*models.AnalysisResult, error)
}

// finishedTTL is how long a finished modal is kept for a browser that never
// closes it.
const finishedTTL = time.Hour

// Service runs analyses in the background and feeds the tracker.
type Service struct {
	analyzer Analyzer
	tracker  *Tracker
	base     context.Context
	log      *zap.Logger
	wg       sync.WaitGroup
}

// NewService ties background analyses to base; cancelling it aborts all of
// them.
func NewService(base context.Context, analyzer Analyzer, tracker *Tracker, log *zap.Logger) *Service {
	return &Service{analyzer: analyzer, tracker: tracker, base: base, log: log.Named("analysis")}
}

func (s *Service) Tracker() *Tracker { return s.tracker }

// Start opens the modal for key and begins the analysis.
func (s *Service) Start(key string, doc models.Document) Modal {
	if n := s.tracker.Sweep(finishedTTL); n > 0 {
		s.log.Debug("swept finished modals", zap.Int("count", n))
	}
	tk := s.tracker.Open(s.base, key, doc)
	modal, _ := s.tracker.Get(key)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(tk, doc.ID)
	}()
	return modal
}

func (s *Service) run(tk Ticket, docID int64) {
	start := time.Now()
	res, err := s.analyzer.AnalyzeDocument(tk.Context(), docID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.log.Info("analysis cancelled", zap.Int64("pdf_id", docID), zap.Uint64("generation", tk.Generation))
			return
		}
		res = FailureResult(err)
	}
	if !s.tracker.Deliver(tk, res) {
		s.log.Info("dropping stale analysis result",
			zap.Int64("pdf_id", docID),
			zap.Uint64("generation", tk.Generation),
		)
		return
	}
	s.log.Info("analysis finished",
		zap.Int64("pdf_id", docID),
		zap.Bool("success", res.Success),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Wait blocks until every started analysis has returned.
func (s *Service) Wait() { s.wg.Wait() }

// FailureResult renders a client-side failure the same way the backend
// reports its own: success=false with a message.
func FailureResult(err error) *models.AnalysisResult {
	return &models.AnalysisResult{
		Success: false,
		Error:   apiclient.UserMessage(err, "AI分析に失敗しました"),
	}
}
