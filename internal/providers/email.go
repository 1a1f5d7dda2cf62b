package providers

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/models"
	"gymnotify/internal/token"
	"gymnotify/internal/validate"
)

// Email sends messages over SMTP. SMTP assigns no message ID, so one is
// generated locally for tracking.
type Email struct {
	smtpServer string
	smtpPort   int
	username   string
	password   string
	fromName   string
	production bool
	logger     *logrus.Logger

	// sendMail is swapped out in tests; net/smtp offers no transport seam.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail builds the SMTP transport.
func NewEmail(server string, port int, username, password, fromName string, production bool, logger *logrus.Logger) *Email {
	return &Email{
		smtpServer: server,
		smtpPort:   port,
		username:   username,
		password:   password,
		fromName:   fromName,
		production: production,
		logger:     logger,
		sendMail:   smtp.SendMail,
	}
}

// Send delivers one email and returns a locally generated message ID.
func (e *Email) Send(ctx context.Context, to string, req models.NotificationRequest) (string, error) {
	if e.smtpServer == "" || e.smtpPort == 0 || e.username == "" || e.password == "" {
		if e.production {
			return "", fmt.Errorf("missing SMTP configuration: %w", token.ErrNotConfigured)
		}
		id := "simulated-" + uuid.NewString()
		e.logger.Warnf("SIMULATED email delivery (dev mode, no SMTP config): to=%s message_id=%s", validate.Mask(to), id)
		return id, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	from := e.username
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.username)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, to, sanitizeHeader(req.Subject), req.Body)

	auth := smtp.PlainAuth("", e.username, e.password, e.smtpServer)
	addr := fmt.Sprintf("%s:%d", e.smtpServer, e.smtpPort)

	// net/smtp takes no context, so the call runs in a goroutine and the
	// attempt deadline wins. A hung server leaks that goroutine until the
	// connection dies, which beats stalling the whole dispatch pipeline.
	errc := make(chan error, 1)
	go func() {
		errc <- e.sendMail(addr, auth, e.username, []string{to}, []byte(msg))
	}()
	select {
	case err := <-errc:
		if err != nil {
			return "", fmt.Errorf("failed to send email to %s: %w", validate.Mask(to), err)
		}
	case <-ctx.Done():
		return "", fmt.Errorf("failed to send email to %s: %w", validate.Mask(to), ctx.Err())
	}
	return uuid.NewString(), nil
}

// sanitizeHeader strips CR and LF so a caller-supplied subject cannot
// inject extra message headers.
func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
