package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/dispatch"
	"gymnotify/internal/models"
)

// Consumer feeds notification requests produced by the main gym application
// (payment confirmations, class reminders) into the dispatch engines.
type Consumer struct {
	reader *kafka.Reader
	sms    dispatch.Sender
	email  dispatch.Sender
	logger *logrus.Logger
}

func NewConsumer(broker, topic, groupID string, sms, email dispatch.Sender, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: groupID,
	})
	return &Consumer{reader: reader, sms: sms, email: email, logger: logger}
}

// Start consumes until ctx is cancelled. Malformed messages are logged and
// skipped; dispatch outcomes are logged, not retried here (the engine owns
// retries).
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("Kafka consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Info("Kafka consumer stopped")
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}

		var req models.NotificationRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			c.logger.Errorf("Unmarshal message failed, skipping: %v", err)
			continue
		}

		var res models.DispatchResult
		switch req.Channel {
		case models.ChannelSMS:
			res = c.sms.Send(ctx, req)
		case models.ChannelEmail:
			res = c.email.Send(ctx, req)
		default:
			c.logger.Errorf("Invalid message: unknown channel %q", req.Channel)
			continue
		}

		if res.Success {
			c.logger.Infof("Dispatched kafka request %s via %s, message_id=%s", req.RequestID, req.Channel, res.MessageID)
		} else {
			c.logger.Errorf("Dispatch of kafka request %s failed: code=%s error=%s", req.RequestID, res.Code, res.Error)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
