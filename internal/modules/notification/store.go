// README: Notification store backed by PostgreSQL.
package notification

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifelink/internal/types"
)

// Store persists notifications. Records are never deleted.
type Store interface {
	Save(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id types.ID) (*Notification, error)
	// List returns notifications newest first; an empty donorID lists all.
	List(ctx context.Context, donorID types.ID) ([]*Notification, error)
	// Respond moves a Pending notification to to. It reports false when the
	// notification is no longer Pending.
	Respond(ctx context.Context, id types.ID, to Status) (bool, error)
	// Reopen moves a notification in from back to Pending.
	Reopen(ctx context.Context, id types.ID, from Status) (bool, error)
	MarkRead(ctx context.Context, id types.ID) (bool, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Save(ctx context.Context, n *Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, donor_id, request_id, message, type, status, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(n.ID), string(n.DonorID), string(n.RequestID), n.Message,
		string(n.Type), string(n.Status), n.IsRead, n.Timestamp,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Notification, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, donor_id, request_id, message, type, status, is_read, created_at
		FROM notifications
		WHERE id = $1`, string(id))
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

func (s *PGStore) List(ctx context.Context, donorID types.ID) ([]*Notification, error) {
	q := `SELECT id, donor_id, request_id, message, type, status, is_read, created_at FROM notifications`
	var args []any
	if donorID != "" {
		q += " WHERE donor_id = $1"
		args = append(args, string(donorID))
	}
	q += " ORDER BY created_at DESC, id"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PGStore) Respond(ctx context.Context, id types.ID, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET status = $1
		WHERE id = $2 AND status = 'Pending'`, string(to), string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Reopen(ctx context.Context, id types.ID, from Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET status = 'Pending'
		WHERE id = $1 AND status = $2`, string(id), string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) MarkRead(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	if err := row.Scan(&n.ID, &n.DonorID, &n.RequestID, &n.Message, &n.Type, &n.Status, &n.IsRead, &n.Timestamp); err != nil {
		return nil, err
	}
	return &n, nil
}
