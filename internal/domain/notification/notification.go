package notification

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Type tags a notification with its originating subsystem.
type Type string

const (
	TypeOrder   Type = "order"
	TypeProduct Type = "product"
	TypeSystem  Type = "system"
	TypeGeneral Type = "general"
)

var (
	// ErrNotFound is returned when a notification does not exist.
	ErrNotFound = errors.New("notification not found")
	// ErrNotOwner is returned when a user tries to act on a notification
	// addressed to somebody else.
	ErrNotOwner = errors.New("notification belongs to another user")
)

// Notification is an append-only message addressed to one user.
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Type      Type
	IsRead    bool
	RelatedID string
	CreatedAt time.Time
}

// Repository defines persistence operations for notifications.
type Repository interface {
	// InsertMany appends the given notifications in one bulk write.
	InsertMany(ctx context.Context, notifications []Notification) error

	// ListByUser returns up to limit of a user's notifications,
	// newest-first, together with the user's total unread count.
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, int, error)

	GetByID(ctx context.Context, id string) (*Notification, error)

	MarkRead(ctx context.Context, id string) (*Notification, error)

	MarkAllRead(ctx context.Context, userID string) error
}
