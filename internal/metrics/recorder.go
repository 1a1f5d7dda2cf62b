package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gymnotify/internal/models"
)

// Publisher receives every recorded metric, e.g. for a live dashboard feed.
type Publisher interface {
	Publish(m models.DeliveryMetric)
}

// Recorder persists delivery metrics best-effort. A send has already
// completed by the time its metric is recorded, so store failures are logged
// and discarded, never surfaced to the sender.
type Recorder struct {
	store     Store // nil means metrics storage is not configured
	publisher Publisher
	logger    *logrus.Logger
	timeout   time.Duration
}

// NewRecorder builds a Recorder. store may be nil (degrades to log-only);
// publisher may be nil.
func NewRecorder(store Store, publisher Publisher, logger *logrus.Logger) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
	}
}

// Record appends one terminal-outcome metric. Fire-and-forget from the
// caller's perspective.
func (r *Recorder) Record(m models.DeliveryMetric) {
	ObserveSend(string(m.Channel), m.Status, time.Duration(m.DurationMs)*time.Millisecond)

	if r.publisher != nil {
		r.publisher.Publish(m)
	}

	if r.store == nil {
		r.logger.Debugf("Metrics store not configured, dropping metric: channel=%s status=%s recipient=%s",
			m.Channel, m.Status, m.RecipientMasked)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Insert(ctx, m); err != nil {
		r.logger.Errorf("Failed to persist delivery metric (discarded): %v", err)
	}
}

// Query returns the raw metrics recorded in [start, end).
func (r *Recorder) Query(ctx context.Context, start, end time.Time) ([]models.DeliveryMetric, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.Select(ctx, start, end)
}

// Stats aggregates the metrics in [start, end) for dashboards.
func (r *Recorder) Stats(ctx context.Context, start, end time.Time) (models.DeliveryStats, error) {
	stats := models.DeliveryStats{ByType: make(map[string]int)}

	rows, err := r.Query(ctx, start, end)
	if err != nil {
		return stats, err
	}

	var totalMs int64
	for _, m := range rows {
		stats.Total++
		stats.ByType[m.Type]++
		totalMs += m.DurationMs
		switch m.Status {
		case "sent":
			stats.Sent++
		case "failed":
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.AvgDurationMs = float64(totalMs) / float64(stats.Total)
	}
	return stats, nil
}
