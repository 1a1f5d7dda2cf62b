package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/models"
	"gymnotify/internal/token"
	"gymnotify/internal/validate"
)

// SMS sends messages through the gateway's REST API with bearer-token auth.
type SMS struct {
	baseURL    string
	fromNumber string
	tokens     *token.Cache
	client     *http.Client
	logger     *logrus.Logger
}

// NewSMS builds the SMS transport. tokens resolves the bearer credential
// lazily on every send, so a token expiring mid-retry-sequence is refreshed.
func NewSMS(baseURL, fromNumber string, tokens *token.Cache, logger *logrus.Logger) *SMS {
	return &SMS{
		baseURL:    strings.TrimRight(baseURL, "/"),
		fromNumber: fromNumber,
		tokens:     tokens,
		client:     &http.Client{},
		logger:     logger,
	}
}

// Send submits one SMS and returns the provider's message ID.
func (s *SMS) Send(ctx context.Context, to string, req models.NotificationRequest) (string, error) {
	tok, err := s.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	if tok == token.DevSentinel {
		// Dev-mode fallback: no credentials configured, so no network call is
		// made. Loud on purpose.
		id := "simulated-" + uuid.NewString()
		s.logger.Warnf("SIMULATED SMS delivery (dev mode, no credentials): to=%s message_id=%s", validate.Mask(to), id)
		return id, nil
	}

	payload, err := json.Marshal(map[string]string{
		"from": s.fromNumber,
		"to":   to,
		"body": req.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode SMS payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create SMS request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+tok)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode SMS response: %w", err)
	}
	if out.MessageID == "" {
		out.MessageID = uuid.NewString()
	}
	return out.MessageID, nil
}
