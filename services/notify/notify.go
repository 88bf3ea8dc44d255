package notifysvc

import (
	"sync"
	"time"

	"github.com/trezcool/scolarite/core"
)

// Notification is one message handed to a notifier.
type Notification struct {
	Kind    core.NotificationKind `json:"kind"`
	Message string                `json:"message"`
	At      time.Time             `json:"at"`
}

// Multi fans notifications out to several notifiers.
type Multi []core.Notifier

var _ core.Notifier = Multi(nil)

func (m Multi) Notify(kind core.NotificationKind, message string) {
	for _, n := range m {
		n.Notify(kind, message)
	}
}

// Recorder keeps the last notifications in memory, newest last.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

var _ core.Notifier = (*Recorder)(nil)

// NewRecorder returns a Recorder keeping up to limit notifications (unbounded if limit <= 0).
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(kind core.NotificationKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, Notification{Kind: kind, Message: message, At: time.Now().UTC()})
	if r.limit > 0 && len(r.items) > r.limit {
		r.items = r.items[len(r.items)-r.limit:]
	}
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the newest notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
