// README: Monthly AI call quota per caller, in Postgres or memory.
package insight

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const monthLayout = "2006-01"

// Quota charges one provider call to a caller.
type Quota interface {
	Use(ctx context.Context, uid string) error
}

// PGQuota keeps monthly allowances in the ai_usage table.
type PGQuota struct {
	db    *pgxpool.Pool
	limit int
	now   func() time.Time
}

func NewPGQuota(db *pgxpool.Pool, limit int) *PGQuota {
	if limit <= 0 {
		limit = DefaultMonthlyQuota
	}
	return &PGQuota{db: db, limit: limit, now: time.Now}
}

// Use deducts one call. A missing row is created with the full allowance and
// the deduction retried once.
func (q *PGQuota) Use(ctx context.Context, uid string) error {
	err := q.useToken(ctx, uid)
	if !errors.Is(err, ErrQuotaExhausted) {
		return err
	}
	if err := q.ensureUser(ctx, uid); err != nil {
		return err
	}
	return q.useToken(ctx, uid)
}

// useToken resets the counter when last_reset_month is behind the current month.
func (q *PGQuota) useToken(ctx context.Context, uid string) error {
	month := q.now().Format(monthLayout)
	tag, err := q.db.Exec(ctx, `
		UPDATE ai_usage SET
			tokens_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR tokens_remaining > 0)
	`, month, q.limit, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

func (q *PGQuota) ensureUser(ctx context.Context, uid string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, q.limit, q.now().Format(monthLayout))
	return err
}

type allowance struct {
	remaining int
	month     string
}

// MemoryQuota is the in-process equivalent of PGQuota.
type MemoryQuota struct {
	mu    sync.Mutex
	limit int
	users map[string]*allowance
	now   func() time.Time
}

func NewMemoryQuota(limit int) *MemoryQuota {
	if limit <= 0 {
		limit = DefaultMonthlyQuota
	}
	return &MemoryQuota{limit: limit, users: map[string]*allowance{}, now: time.Now}
}

func (q *MemoryQuota) Use(_ context.Context, uid string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	month := q.now().Format(monthLayout)
	a, ok := q.users[uid]
	if !ok || a.month != month {
		a = &allowance{remaining: q.limit, month: month}
		q.users[uid] = a
	}
	if a.remaining <= 0 {
		return ErrQuotaExhausted
	}
	a.remaining--
	return nil
}
