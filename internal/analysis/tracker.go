package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/kakomon/admin/internal/models"
)

// Modal is what the analysis dialog shows for one browser.
type Modal struct {
	Generation uint64                 `json:"generation"`
	DocumentID int64                  `json:"pdf_id"`
	Filename   string                 `json:"filename"`
	Loading    bool                   `json:"loading"`
	Result     *models.AnalysisResult `json:"result,omitempty"`
	OpenedAt   time.Time              `json:"opened_at"`
}

// Ticket identifies one open of the modal. Results are only accepted for the
// ticket of the modal that is currently open.
type Ticket struct {
	Key        string
	Generation uint64
	ctx        context.Context
}

// Context is cancelled when the modal is closed or replaced.
func (t Ticket) Context() context.Context { return t.ctx }

type entry struct {
	modal  Modal
	cancel context.CancelFunc
}

// Tracker holds the open analysis modal per browser key.
type Tracker struct {
	mu    sync.Mutex
	gen   uint64
	modal map[string]*entry
	now   func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{modal: make(map[string]*entry), now: time.Now}
}

// Open shows a loading modal for doc, replacing (and cancelling) whatever
// that key had open.
func (t *Tracker) Open(parent context.Context, key string, doc models.Document) Ticket {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.modal[key]; ok {
		prev.cancel()
	}
	t.gen++
	t.modal[key] = &entry{
		modal: Modal{
			Generation: t.gen,
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Loading:    true,
			OpenedAt:   t.now(),
		},
		cancel: cancel,
	}
	return Ticket{Key: key, Generation: t.gen, ctx: ctx}
}

// Deliver stores res if tk still matches the open modal. It reports whether
// the result was kept.
func (t *Tracker) Deliver(tk Ticket, res *models.AnalysisResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.modal[tk.Key]
	if !ok || e.modal.Generation != tk.Generation {
		return false
	}
	e.modal.Loading = false
	e.modal.Result = res
	e.cancel()
	return true
}

// Close dismisses the modal and cancels its request if still running.
func (t *Tracker) Close(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.modal[key]
	if !ok {
		return false
	}
	e.cancel()
	delete(t.modal, key)
	return true
}

func (t *Tracker) Get(key string) (Modal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.modal[key]
	if !ok {
		return Modal{}, false
	}
	return e.modal, true
}

// Sweep drops finished modals opened more than maxAge ago. Modals still
// loading are kept.
func (t *Tracker) Sweep(maxAge time.Duration) int {
	cutoff := t.now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key, e := range t.modal {
		if !e.modal.Loading && e.modal.OpenedAt.Before(cutoff) {
			delete(t.modal, key)
			n++
		}
	}
	return n
}

// Len is the number of open modals.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.modal)
}
