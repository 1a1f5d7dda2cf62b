package metrics

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnotify/internal/models"
)

type fakeStore struct {
	rows      []models.DeliveryMetric
	insertErr error
}

func (f *fakeStore) Insert(_ context.Context, m models.DeliveryMetric) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, m)
	return nil
}

func (f *fakeStore) Select(_ context.Context, start, end time.Time) ([]models.DeliveryMetric, error) {
	var out []models.DeliveryMetric
	for _, m := range f.rows {
		if !m.Timestamp.Before(start) && m.Timestamp.Before(end) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakePublisher struct {
	published []models.DeliveryMetric
}

func (f *fakePublisher) Publish(m models.DeliveryMetric) { f.published = append(f.published, m) }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func metric(status, typ string, ms int64, at time.Time) models.DeliveryMetric {
	return models.DeliveryMetric{
		RecipientMasked: "+123****8900",
		Channel:         models.ChannelSMS,
		Type:            typ,
		Status:          status,
		DurationMs:      ms,
		Timestamp:       at,
	}
}

func TestRecordPersistsAndPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	r := NewRecorder(store, pub, testLogger())

	r.Record(metric("sent", "expiry_reminder", 120, time.Now()))

	require.Len(t, store.rows, 1)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "sent", store.rows[0].Status)
}

func TestRecordDegradesWithoutStore(t *testing.T) {
	r := NewRecorder(nil, nil, testLogger())
	assert.NotPanics(t, func() {
		r.Record(metric("failed", "payment_confirmation", 50, time.Now()))
	})
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("relation delivery_metrics does not exist")}
	r := NewRecorder(store, nil, testLogger())
	assert.NotPanics(t, func() {
		r.Record(metric("sent", "expiry_reminder", 80, time.Now()))
	})
}

func TestStats(t *testing.T) {
	now := time.Now()
	store := &fakeStore{rows: []models.DeliveryMetric{
		metric("sent", "expiry_reminder", 100, now),
		metric("sent", "expiry_reminder", 200, now.Add(time.Minute)),
		metric("failed", "payment_confirmation", 300, now.Add(2*time.Minute)),
		metric("sent", "welcome", 999, now.Add(-2*time.Hour)), // outside range
	}}
	r := NewRecorder(store, nil, testLogger())

	stats, err := r.Stats(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.ByType["expiry_reminder"])
	assert.Equal(t, 1, stats.ByType["payment_confirmation"])
	assert.InDelta(t, 200.0, stats.AvgDurationMs, 0.01)
}

func TestStatsEmptyWithoutStore(t *testing.T) {
	r := NewRecorder(nil, nil, testLogger())
	stats, err := r.Stats(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AvgDurationMs)
}
