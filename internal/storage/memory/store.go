// Package memory implements the storage interfaces with in-process maps.
// It backs handler tests and local development without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maxjung/messagely-be/internal/models"
	"github.com/maxjung/messagely-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps users and messages in maps guarded by a single RWMutex.
// Message order tracks insertion, matching the sent_at ordering contract.
type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	messages map[string]models.Message
	order    []string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]models.User),
		messages: make(map[string]models.Message),
	}
}

// CreateUser inserts a user keyed by username.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return models.User{}, storage.ErrAlreadyExists
	}
	s.users[user.Username] = user
	return user, nil
}

// FindByUsername fetches a user by username.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// UpdateLastLogin stamps the user's last_login_at.
func (s *Store) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return storage.ErrNotFound
	}
	user.LastLoginAt = at
	s.users[username] = user
	return nil
}

// CreateMessage inserts a message; both participants must exist.
func (s *Store) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return models.Message{}, storage.ErrAlreadyExists
	}
	if _, exists := s.users[msg.FromUsername]; !exists {
		return models.Message{}, storage.ErrNotFound
	}
	if _, exists := s.users[msg.ToUsername]; !exists {
		return models.Message{}, storage.ErrNotFound
	}
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	return msg, nil
}

// GetMessage fetches a message joined with both participants' profiles.
func (s *Store) GetMessage(ctx context.Context, id string) (models.MessageDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, exists := s.messages[id]
	if !exists {
		return models.MessageDetail{}, storage.ErrNotFound
	}
	return models.MessageDetail{
		ID:       msg.ID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
		FromUser: s.users[msg.FromUsername].Public(),
		ToUser:   s.users[msg.ToUsername].Public(),
	}, nil
}

// MarkRead stamps read_at once; repeated calls keep the original timestamp.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, exists := s.messages[id]
	if !exists {
		return models.Message{}, storage.ErrNotFound
	}
	if msg.ReadAt == nil {
		msg.ReadAt = &at
		s.messages[id] = msg
	}
	return s.messages[id], nil
}

// ListReceived returns messages addressed to the user with each sender's
// profile, in insertion order.
func (s *Store) ListReceived(ctx context.Context, username string) ([]models.InboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := []models.InboxMessage{}
	for _, id := range s.order {
		msg := s.messages[id]
		if msg.ToUsername != username {
			continue
		}
		msgs = append(msgs, models.InboxMessage{
			ID:       msg.ID,
			Body:     msg.Body,
			SentAt:   msg.SentAt,
			ReadAt:   msg.ReadAt,
			FromUser: s.users[msg.FromUsername].Public(),
		})
	}
	return msgs, nil
}

// ListSent returns messages the user sent with each recipient's profile, in
// insertion order.
func (s *Store) ListSent(ctx context.Context, username string) ([]models.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := []models.OutboxMessage{}
	for _, id := range s.order {
		msg := s.messages[id]
		if msg.FromUsername != username {
			continue
		}
		msgs = append(msgs, models.OutboxMessage{
			ID:     msg.ID,
			Body:   msg.Body,
			SentAt: msg.SentAt,
			ReadAt: msg.ReadAt,
			ToUser: s.users[msg.ToUsername].Public(),
		})
	}
	return msgs, nil
}
