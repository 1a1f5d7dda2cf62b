package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gymnotify/internal/models"
)

// Store persists delivery metrics. Implementations must tolerate being
// called fire-and-forget; the recorder handles their errors.
type Store interface {
	Insert(ctx context.Context, m models.DeliveryMetric) error
	Select(ctx context.Context, start, end time.Time) ([]models.DeliveryMetric, error)
}

// PGStore keeps delivery metrics in a delivery_metrics table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Insert(ctx context.Context, m models.DeliveryMetric) error {
	query := `
        INSERT INTO delivery_metrics (
            recipient_masked, channel, type, status,
            provider_message_id, error, duration_ms, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		m.RecipientMasked, string(m.Channel), m.Type, m.Status,
		m.ProviderMessageID, m.Error, m.DurationMs, m.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert delivery metric: %w", err)
	}
	return nil
}

func (s *PGStore) Select(ctx context.Context, start, end time.Time) ([]models.DeliveryMetric, error) {
	query := `
        SELECT recipient_masked, channel, type, status,
               provider_message_id, error, duration_ms, created_at
        FROM delivery_metrics
        WHERE created_at >= $1 AND created_at < $2
        ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery metrics: %w", err)
	}
	defer rows.Close()

	var out []models.DeliveryMetric
	for rows.Next() {
		var m models.DeliveryMetric
		var channel string
		if err := rows.Scan(&m.RecipientMasked, &channel, &m.Type, &m.Status,
			&m.ProviderMessageID, &m.Error, &m.DurationMs, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan delivery metric: %w", err)
		}
		m.Channel = models.Channel(channel)
		out = append(out, m)
	}
	return out, rows.Err()
}
