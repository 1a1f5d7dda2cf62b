package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"gymnotify/internal/models"
)

// BulkSender pushes a list of requests through a channel engine strictly
// sequentially, paced by a fixed inter-item delay. Throughput is deliberately
// traded for provider-friendliness.
type BulkSender struct {
	sender Sender
	pacer  *rate.Limiter
	logger *logrus.Logger
}

// NewBulkSender builds a bulk sender pacing one dispatch per pacingDelay.
func NewBulkSender(sender Sender, pacingDelay time.Duration, logger *logrus.Logger) *BulkSender {
	if pacingDelay <= 0 {
		pacingDelay = time.Second
	}
	return &BulkSender{
		sender: sender,
		pacer:  rate.NewLimiter(rate.Every(pacingDelay), 1),
		logger: logger,
	}
}

// SendAll dispatches every request in order and returns one outcome per
// request. A failed item never stops the rest; only context cancellation
// aborts the batch, marking the remaining items as failed.
func (b *BulkSender) SendAll(ctx context.Context, reqs []models.NotificationRequest) []models.DispatchResult {
	results := make([]models.DispatchResult, 0, len(reqs))
	for i, req := range reqs {
		if err := b.pacer.Wait(ctx); err != nil {
			b.logger.Warnf("Bulk send aborted at item %d/%d: %v", i+1, len(reqs), err)
			for ; i < len(reqs); i++ {
				results = append(results, models.DispatchResult{
					Code:  models.CodeSendFailed,
					Error: "bulk send aborted: " + err.Error(),
				})
			}
			break
		}
		results = append(results, b.sender.Send(ctx, req))
	}

	sent := 0
	for _, r := range results {
		if r.Success {
			sent++
		}
	}
	b.logger.Infof("Bulk send finished: %d/%d succeeded", sent, len(reqs))
	return results
}
