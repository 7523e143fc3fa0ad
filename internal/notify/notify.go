// Package notify holds the viewer's transient UI state: toast
// notifications and the loading indicator.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDismissAfter is how long a notification stays visible.
const DefaultDismissAfter = 3 * time.Second

// Kind is the notification style.
type Kind string

// Notification kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is the current toast state.
type Notification struct {
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
	Visible bool   `json:"visible"`
}

// Timer is the subset of *time.Timer used for auto-dismissal.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

// Notifier shows one notification at a time and hides it after a delay.
// A new notification replaces the current one and restarts the delay.
type Notifier struct {
	mu           sync.Mutex
	current      Notification
	timer        Timer
	seq          int
	dismissAfter time.Duration
	afterFunc    AfterFunc
	listeners    []func(Notification)
	logger       *zap.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDismissAfter sets the auto-dismiss delay.
func WithDismissAfter(d time.Duration) Option {
	return func(n *Notifier) {
		n.dismissAfter = d
	}
}

// WithAfterFunc replaces the timer used for auto-dismissal (for testing).
func WithAfterFunc(f AfterFunc) Option {
	return func(n *Notifier) {
		n.afterFunc = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		dismissAfter: DefaultDismissAfter,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers a listener called on every show and dismiss.
func (n *Notifier) Subscribe(fn func(Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Success shows a success notification.
func (n *Notifier) Success(message string) {
	n.Show(message, KindSuccess)
}

// Error shows an error notification.
func (n *Notifier) Error(message string) {
	n.Show(message, KindError)
}

// Show displays a notification and schedules its dismissal.
func (n *Notifier) Show(message string, kind Kind) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	seq := n.seq
	n.current = Notification{Message: message, Kind: kind, Visible: true}
	n.timer = n.afterFunc(n.dismissAfter, func() { n.dismiss(seq) })
	current, listeners := n.current, n.listeners
	n.mu.Unlock()

	if kind == KindError {
		n.logger.Debug("notification", zap.String("kind", string(kind)), zap.String("message", message))
	}
	for _, fn := range listeners {
		fn(current)
	}
}

// dismiss hides the notification shown with the given sequence number,
// unless a newer one has replaced it.
func (n *Notifier) dismiss(seq int) {
	n.mu.Lock()
	if seq != n.seq || !n.current.Visible {
		n.mu.Unlock()
		return
	}
	n.current.Visible = false
	n.timer = nil
	current, listeners := n.current, n.listeners
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(current)
	}
}

// Stop cancels a pending dismissal. The current notification stays as is.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// Current returns the current notification state.
func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Loading tracks whether any long-running operation is in progress.
// Begin/End pairs nest, so an upload that triggers a reload keeps the
// indicator visible until both finish.
type Loading struct {
	mu     sync.Mutex
	active int
}

// Begin marks an operation as started.
func (l *Loading) Begin() {
	l.mu.Lock()
	l.active++
	l.mu.Unlock()
}

// End marks an operation as finished.
func (l *Loading) End() {
	l.mu.Lock()
	if l.active > 0 {
		l.active--
	}
	l.mu.Unlock()
}

// Visible reports whether the indicator is shown.
func (l *Loading) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active > 0
}
