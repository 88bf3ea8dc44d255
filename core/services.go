package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNoData is returned by a Storage when nothing was saved under a key.
var ErrNoData = errors.New("no data stored under key")

type (
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// NotificationKind classifies a notification.
	NotificationKind string

	// Notifier is any fire-and-forget notification sink.
	Notifier interface {
		Notify(kind NotificationKind, message string)
	}

	// Storage persists whole collections, encoded by the caller, under a key.
	Storage interface {
		// Load returns ErrNoData when nothing was saved under key.
		Load(ctx context.Context, key string) ([]byte, error)
		Save(ctx context.Context, key string, data []byte) error
		Close() error
	}

	// Actor is the identity of the acting user, recorded verbatim in history entries.
	Actor struct {
		UserID      string `json:"user_id"`
		Role        string `json:"role"`
		DisplayName string `json:"display_name"`
	}
)

const (
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
)

// Repository is an owned collection of records keyed by id.
// Reads return copies; writes go through Add, Update and Remove only.
type Repository[T any] interface {
	// List returns all records in insertion order.
	List() ([]T, error)
	Get(id string) (T, error)
	// Filter returns, in insertion order, the records for which match returns true.
	Filter(match func(T) bool) ([]T, error)
	// Add fails with ErrDuplicateID if the record's id already exists.
	Add(rec T) (T, error)
	// Update applies fn to a copy of the record and stores it if fn returns nil.
	Update(id string, fn func(*T) error) (T, error)
	Remove(id string) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(NotificationKind, string) {}
