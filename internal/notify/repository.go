package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fibra-studio/fibra-core/internal/platform/db"
	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

// Insert persists one notification. A dedupe-key collision surfaces as
// httpx.ErrDuplicate so the caller can treat it as an already-sent alert.
func (r *Repository) Insert(ctx context.Context, in Input) (*Notification, error) {
	var n Notification
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `
			INSERT INTO notifications (user_id, type, message, dedupe_key)
			VALUES ($1, $2, $3, NULLIF($4, ''))
			RETURNING id, user_id, type, message, read, created_at`,
			in.UserID, in.Type, in.Message, in.DedupeKey)
		return row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("notify: dedupe key collision: %w", httpx.ErrDuplicate)
		}
		return nil, err
	}
	return &n, nil
}

// InsertMany persists one notification per input in a single batch.
func (r *Repository) InsertMany(ctx context.Context, inputs []Input) error {
	if len(inputs) == 0 {
		return nil
	}
	return db.WithRetry(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, in := range inputs {
			batch.Queue(`INSERT INTO notifications (user_id, type, message) VALUES ($1, $2, $3)`,
				in.UserID, in.Type, in.Message)
		}
		return r.pool.SendBatch(ctx, batch).Close()
	})
}

// ExistsSince reports whether the user already has a notification of the
// given type created at or after the cutoff.
func (r *Repository) ExistsSince(ctx context.Context, userID uuid.UUID, ntype string, since time.Time) (bool, error) {
	var exists bool
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM notifications
				WHERE user_id = $1 AND type = $2 AND created_at >= $3
			)`, userID, ntype, since).Scan(&exists)
	})
	return exists, err
}

// ListForUser returns the user's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Notification
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, user_id, type, message, read, created_at
			FROM notifications
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var n Notification
			if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	return out, err
}

// UnreadTypes returns the type tags of every unread notification for the
// user, one entry per row.
func (r *Repository) UnreadTypes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var types []string
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `SELECT type FROM notifications WHERE user_id = $1 AND NOT read`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		types = types[:0]
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				return err
			}
			types = append(types, t)
		}
		return rows.Err()
	})
	return types, err
}

// MarkRead flips the read flag for a notification owned by the user. The
// transition is one-way; there is no unread operation.
func (r *Repository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return db.WithRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
}
