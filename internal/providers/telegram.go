package providers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
)

// OpsNotifier pushes operational summaries (expiry scan results, startup
// notices) to an admin Telegram chat. Best-effort: member-facing delivery
// never depends on it.
type OpsNotifier struct {
	botToken string
	chatID   int64
	logger   *logrus.Logger
}

func NewOpsNotifier(botToken string, chatID int64, logger *logrus.Logger) *OpsNotifier {
	return &OpsNotifier{botToken: botToken, chatID: chatID, logger: logger}
}

// Notify sends text to the admin chat. A missing bot configuration is a
// silent no-op.
func (o *OpsNotifier) Notify(ctx context.Context, text string) {
	if o.botToken == "" || o.chatID == 0 {
		return
	}

	b, err := bot.New(o.botToken)
	if err != nil {
		o.logger.Errorf("Failed to initialize Telegram bot: %v", err)
		return
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: o.chatID, Text: text}); err != nil {
		o.logger.Errorf("Failed to send ops alert to chat_id %d: %v", o.chatID, err)
	}
}
