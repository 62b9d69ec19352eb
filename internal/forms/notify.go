package forms

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// NotificationKind is the severity of a notification
type NotificationKind string

// Notification kinds
const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient message shown to staff after an action
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

// Notifier surfaces notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the log
type LogNotifier struct{}

// Notify logs the notification
func (LogNotifier) Notify(ctx context.Context, n Notification) {
	event := log.Info()
	if n.Kind == NotificationError {
		event = log.Warn()
	}
	event.Str("kind", string(n.Kind)).Msg(n.Message)
}

// Recorder keeps the notifications it receives, in order
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// Notify records the notification
func (r *Recorder) Notify(ctx context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Notifications returns what was recorded so far
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification{}, r.notifications...)
}

// MultiNotifier fans a notification out to several notifiers
type MultiNotifier []Notifier

// Notify forwards n to every notifier
func (m MultiNotifier) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

func success(message string) Notification {
	return Notification{Kind: NotificationSuccess, Message: message}
}

func failed(message string) Notification {
	return Notification{Kind: NotificationError, Message: message}
}
