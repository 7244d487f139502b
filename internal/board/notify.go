package board

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(title, message string)
	Error(title, message string)
}

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is one dismissable notification.
type Toast struct {
	ID      int
	Kind    ToastKind
	Title   string
	Message string
	At      time.Time
}

// Toasts is a Notifier that queues notifications until they are dismissed.
// The oldest toast is dropped once Limit is exceeded.
type Toasts struct {
	mu     sync.Mutex
	limit  int
	nextID int
	items  []Toast
}

const defaultToastLimit = 5

func NewToasts(limit int) *Toasts {
	if limit <= 0 {
		limit = defaultToastLimit
	}
	return &Toasts{limit: limit}
}

func (q *Toasts) Success(title, message string) { q.push(ToastSuccess, title, message) }
func (q *Toasts) Error(title, message string)   { q.push(ToastError, title, message) }

func (q *Toasts) push(kind ToastKind, title, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	q.items = append(q.items, Toast{
		ID:      q.nextID,
		Kind:    kind,
		Title:   title,
		Message: message,
		At:      time.Now(),
	})
	if len(q.items) > q.limit {
		q.items = q.items[len(q.items)-q.limit:]
	}
}

// Active returns the queued toasts, oldest first.
func (q *Toasts) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Toast(nil), q.items...)
}

// Dismiss removes the toast with the given ID and reports whether it existed.
func (q *Toasts) Dismiss(id int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.items {
		if t.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// LogNotifier writes notifications to a zerolog logger. The CLI uses it.
type LogNotifier struct {
	Logger *zerolog.Logger
}

func (n LogNotifier) logger() *zerolog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return &log.Logger
}

func (n LogNotifier) Success(title, message string) {
	n.logger().Info().Str("title", title).Msg(message)
}

func (n LogNotifier) Error(title, message string) {
	n.logger().Error().Str("title", title).Msg(message)
}
