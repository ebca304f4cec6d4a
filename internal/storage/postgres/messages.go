package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maxjung/messagely-be/internal/models"
	"github.com/maxjung/messagely-be/internal/storage"
)

// CreateMessage inserts a new message row. A recipient or sender that does
// not exist trips the foreign key and surfaces as ErrNotFound.
func (s *Store) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	const query = `
		INSERT INTO messages (id, from_username, to_username, body, sent_at, read_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
		RETURNING id, from_username, to_username, body, sent_at, read_at;
	`
	row := s.pool.QueryRow(ctx, query, msg.ID, msg.FromUsername, msg.ToUsername, msg.Body, msg.SentAt)
	created, err := scanMessage(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return models.Message{}, storage.ErrNotFound
			case "23505":
				return models.Message{}, storage.ErrAlreadyExists
			}
		}
		return models.Message{}, err
	}
	return created, nil
}

// GetMessage fetches a message joined with both participants' profiles.
func (s *Store) GetMessage(ctx context.Context, id string) (models.MessageDetail, error) {
	const query = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages m
		JOIN users f ON m.from_username = f.username
		JOIN users t ON m.to_username = t.username
		WHERE m.id = $1;
	`
	var d models.MessageDetail
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Body, &d.SentAt, &d.ReadAt,
		&d.FromUser.Username, &d.FromUser.FirstName, &d.FromUser.LastName, &d.FromUser.Phone,
		&d.ToUser.Username, &d.ToUser.FirstName, &d.ToUser.LastName, &d.ToUser.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MessageDetail{}, storage.ErrNotFound
		}
		return models.MessageDetail{}, err
	}
	return d, nil
}

// MarkRead stamps read_at once; COALESCE keeps the original timestamp on
// repeated calls so the update is atomic and idempotent.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (models.Message, error) {
	const query = `
		UPDATE messages
		SET read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING id, from_username, to_username, body, sent_at, read_at;
	`
	msg, err := scanMessage(s.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Message{}, storage.ErrNotFound
		}
		return models.Message{}, err
	}
	return msg, nil
}

// ListReceived returns messages addressed to the user with each sender's
// profile, oldest first.
func (s *Store) ListReceived(ctx context.Context, username string) ([]models.InboxMessage, error) {
	const query = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone
		FROM messages m
		JOIN users f ON m.from_username = f.username
		WHERE m.to_username = $1
		ORDER BY m.sent_at;
	`
	rows, err := s.pool.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.InboxMessage{}
	for rows.Next() {
		var m models.InboxMessage
		if err := rows.Scan(&m.ID, &m.Body, &m.SentAt, &m.ReadAt,
			&m.FromUser.Username, &m.FromUser.FirstName, &m.FromUser.LastName, &m.FromUser.Phone); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListSent returns messages the user sent with each recipient's profile,
// oldest first.
func (s *Store) ListSent(ctx context.Context, username string) ([]models.OutboxMessage, error) {
	const query = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages m
		JOIN users t ON m.to_username = t.username
		WHERE m.from_username = $1
		ORDER BY m.sent_at;
	`
	rows, err := s.pool.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.OutboxMessage{}
	for rows.Next() {
		var m models.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Body, &m.SentAt, &m.ReadAt,
			&m.ToUser.Username, &m.ToUser.FirstName, &m.ToUser.LastName, &m.ToUser.Phone); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanMessage(row pgx.Row) (models.Message, error) {
	var msg models.Message
	err := row.Scan(&msg.ID, &msg.FromUsername, &msg.ToUsername, &msg.Body, &msg.SentAt, &msg.ReadAt)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}
