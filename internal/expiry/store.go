package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gymnotify/internal/models"
)

// Store reads membership records. The scan consumes the business-record
// store strictly read-only.
type Store interface {
	// CountActive returns how many active memberships exist.
	CountActive(ctx context.Context) (int, error)
	// FindExpiring returns active memberships whose plan ends on the given
	// calendar day (midnight-normalized).
	FindExpiring(ctx context.Context, day time.Time) ([]models.ExpiryCandidate, error)
}

// PGStore queries the gym's memberships table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memberships WHERE status = 'active'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active memberships: %w", err)
	}
	return n, nil
}

func (s *PGStore) FindExpiring(ctx context.Context, day time.Time) ([]models.ExpiryCandidate, error) {
	// Equality on the calendar day, expressed as a half-open range so the
	// plan_end_date index stays usable.
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := `
        SELECT m.id, m.name, COALESCE(m.phone, ''), COALESCE(m.email, ''), m.plan_name, m.plan_end_date
        FROM memberships m
        WHERE m.status = 'active' AND m.plan_end_date >= $1 AND m.plan_end_date < $2
        ORDER BY m.id`
	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring memberships: %w", err)
	}
	defer rows.Close()

	var out []models.ExpiryCandidate
	for rows.Next() {
		var c models.ExpiryCandidate
		if err := rows.Scan(&c.MemberID, &c.Name, &c.Phone, &c.Email, &c.PlanName, &c.PlanEndDate); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
