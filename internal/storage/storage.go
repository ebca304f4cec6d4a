package storage

import (
	"context"
	"errors"
	"time"

	"github.com/maxjung/messagely-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures identity persistence operations needed by handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
}

// MessageStore captures message persistence operations needed by handlers.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, id string) (models.MessageDetail, error)
	// MarkRead stamps read_at if it is still null; an already-read message
	// keeps its original timestamp.
	MarkRead(ctx context.Context, id string, at time.Time) (models.Message, error)
	ListReceived(ctx context.Context, username string) ([]models.InboxMessage, error)
	ListSent(ctx context.Context, username string) ([]models.OutboxMessage, error)
}

// Store bundles the user and message persistence surfaces.
type Store interface {
	UserStore
	MessageStore
}
