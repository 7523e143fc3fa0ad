// Package query runs the viewer's read-only lookups (papers by author,
// citation analysis, influence ranking) and keeps each one's rendered
// result for display.
package query

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/api"
)

// Kind names one of the three lookups.
type Kind string

// Lookup kinds.
const (
	KindAuthor      Kind = "author"
	KindCitations   Kind = "citations"
	KindInfluential Kind = "influential"
)

// Kinds lists every lookup in display order.
var Kinds = []Kind{KindAuthor, KindCitations, KindInfluential}

// User-facing messages.
const (
	MsgEnterAuthor = "Please enter an author name"
	MsgEnterTitle  = "Please enter a paper title"

	// msgQueryFailed is shown inline when the backend rejects a query
	// without saying why.
	msgQueryFailed = "Query failed"
)

var (
	// ErrEmptyQuery is returned when the author name or title is blank.
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnknownKind is returned for a lookup kind other than the three supported.
	ErrUnknownKind = errors.New("unknown query kind")
)

// Querier runs the backend lookups. *api.Client satisfies it.
type Querier interface {
	PapersByAuthor(ctx context.Context, name string) (*api.AuthorResult, error)
	Citations(ctx context.Context, title string) (*api.CitationResult, error)
	Influential(ctx context.Context) ([]api.InfluentialPaper, error)
}

// Notifier shows error notifications. *notify.Notifier satisfies it.
type Notifier interface {
	Error(message string)
}

// Result is one lookup's results area. It keeps its content until the
// next lookup of the same kind gets a response.
type Result struct {
	HTML    template.HTML `json:"html"`
	Visible bool          `json:"visible"`
}

// Panel owns the three results areas.
type Panel struct {
	client   Querier
	notifier Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	results map[Kind]Result
}

// NewPanel creates a Panel. A nil logger disables logging.
func NewPanel(client Querier, notifier Notifier, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{
		client:   client,
		notifier: notifier,
		logger:   logger,
		results:  make(map[Kind]Result),
	}
}

// Run dispatches a lookup by kind. The input is ignored for KindInfluential.
func (p *Panel) Run(ctx context.Context, kind Kind, input string) (Result, error) {
	switch kind {
	case KindAuthor:
		return p.Author(ctx, input)
	case KindCitations:
		return p.Citations(ctx, input)
	case KindInfluential:
		return p.Influential(ctx)
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Author lists the papers by the named author.
func (p *Panel) Author(ctx context.Context, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		p.notifier.Error(MsgEnterAuthor)
		return p.Result(KindAuthor), ErrEmptyQuery
	}
	res, err := p.client.PapersByAuthor(ctx, name)
	if err != nil {
		return p.fail(KindAuthor, err)
	}
	html, err := RenderAuthor(res)
	if err != nil {
		return p.Result(KindAuthor), err
	}
	return p.store(KindAuthor, html), nil
}

// Citations analyzes the citations of the titled paper.
func (p *Panel) Citations(ctx context.Context, title string) (Result, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		p.notifier.Error(MsgEnterTitle)
		return p.Result(KindCitations), ErrEmptyQuery
	}
	res, err := p.client.Citations(ctx, title)
	if err != nil {
		return p.fail(KindCitations, err)
	}
	html, err := RenderCitations(res)
	if err != nil {
		return p.Result(KindCitations), err
	}
	return p.store(KindCitations, html), nil
}

// Influential ranks papers by citation count.
func (p *Panel) Influential(ctx context.Context) (Result, error) {
	papers, err := p.client.Influential(ctx)
	if err != nil {
		return p.fail(KindInfluential, err)
	}
	html, err := RenderInfluential(papers)
	if err != nil {
		return p.Result(KindInfluential), err
	}
	return p.store(KindInfluential, html), nil
}

// Result returns the current results area for kind.
func (p *Panel) Result(kind Kind) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results[kind]
}

// fail shows a backend rejection inline and anything else as a
// notification, leaving the results area untouched.
func (p *Panel) fail(kind Kind, err error) (Result, error) {
	if !api.IsAPIError(err) {
		p.logger.Debug("query failed", zap.String("kind", string(kind)), zap.Error(err))
		p.notifier.Error(api.UserMessage(err, msgQueryFailed))
		return p.Result(kind), err
	}
	html, rerr := RenderError(api.UserMessage(err, msgQueryFailed))
	if rerr != nil {
		return p.Result(kind), rerr
	}
	return p.store(kind, html), err
}

func (p *Panel) store(kind Kind, html template.HTML) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := Result{HTML: html, Visible: true}
	p.results[kind] = r
	return r
}
