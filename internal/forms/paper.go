package forms

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/api"
)

// Paper form messages.
const (
	MsgTitleRequired = "Paper title is required"
	MsgPaperAdded    = "Paper added successfully!"
	MsgAddFailed     = "Error adding paper"
)

// Notifier shows notifications. *notify.Notifier satisfies it.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// ReloadFunc reloads the graph after a successful mutation. Failures are
// reported by the reload itself.
type ReloadFunc func(ctx context.Context) error

// PaperForm holds the fields of the add-paper form. Authors and cited
// papers are comma-separated.
type PaperForm struct {
	Title       string `json:"title" validate:"required"`
	Authors     string `json:"authors"`
	Journal     string `json:"journal"`
	Year        string `json:"year"`
	CitedPapers string `json:"cited_papers"`
}

// Trimmed returns the form with surrounding whitespace removed from every field.
func (f PaperForm) Trimmed() PaperForm {
	return PaperForm{
		Title:       strings.TrimSpace(f.Title),
		Authors:     strings.TrimSpace(f.Authors),
		Journal:     strings.TrimSpace(f.Journal),
		Year:        strings.TrimSpace(f.Year),
		CitedPapers: strings.TrimSpace(f.CitedPapers),
	}
}

// Validate checks a trimmed form.
func (f PaperForm) Validate() error {
	return validateStruct(f)
}

// Request converts the form to the backend request body.
func (f PaperForm) Request() api.PaperRequest {
	return api.PaperRequest{
		Title:       f.Title,
		Authors:     f.Authors,
		Journal:     f.Journal,
		Year:        f.Year,
		CitedPapers: f.CitedPapers,
	}
}

// PaperSubmitter adds a paper. *api.Client satisfies it.
type PaperSubmitter interface {
	AddPaper(ctx context.Context, req api.PaperRequest) (*api.MessageResponse, error)
}

// Papers is the add-paper form and its submission.
type Papers struct {
	client   PaperSubmitter
	notifier Notifier
	reload   ReloadFunc
	logger   *zap.Logger

	mu   sync.Mutex
	form PaperForm
}

// NewPapers creates the add-paper form. A nil logger disables logging.
func NewPapers(client PaperSubmitter, notifier Notifier, reload ReloadFunc, logger *zap.Logger) *Papers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Papers{client: client, notifier: notifier, reload: reload, logger: logger}
}

// Form returns the current field values.
func (p *Papers) Form() PaperForm {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form
}

// Submit validates and sends the form. On success the form is cleared and
// the graph reloaded once the backend has answered; on failure the entered
// values are kept.
func (p *Papers) Submit(ctx context.Context, form PaperForm) error {
	form = form.Trimmed()
	p.mu.Lock()
	p.form = form
	p.mu.Unlock()

	if err := form.Validate(); err != nil {
		p.notifier.Error(validationMessage(err))
		return err
	}

	if _, err := p.client.AddPaper(ctx, form.Request()); err != nil {
		p.logger.Debug("add paper failed", zap.String("title", form.Title), zap.Error(err))
		p.notifier.Error(api.UserMessage(err, MsgAddFailed))
		return err
	}

	p.notifier.Success(MsgPaperAdded)

	p.mu.Lock()
	p.form = PaperForm{}
	p.mu.Unlock()

	if p.reload != nil {
		if err := p.reload(ctx); err != nil {
			p.logger.Debug("reload after add", zap.Error(err))
		}
	}
	return nil
}
