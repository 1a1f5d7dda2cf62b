package models

import "time"

// Channel is a notification medium.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Result codes returned by the dispatch engine.
const (
	CodeInvalidRecipient   = "invalid_recipient"
	CodeRateLimited        = "rate_limited"
	CodeConfigurationError = "configuration_error"
	CodeSendFailed         = "send_failed"
)

// NotificationRequest is one logical outbound message. It is constructed by
// the caller and never persisted as an entity.
type NotificationRequest struct {
	Channel   Channel           `json:"channel"`
	Recipient string            `json:"recipient" binding:"required"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body" binding:"required"`
	Type      string            `json:"type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// DispatchResult is the terminal outcome of one Send call.
type DispatchResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`

	// Populated only when Code is CodeRateLimited. RetryAfter is a pointer
	// so successful results omit the field instead of carrying a zero time.
	LimitedScope string     `json:"limited_scope,omitempty"`
	RetryAfter   *time.Time `json:"retry_after,omitempty"`
}

// DeliveryMetric is the append-only record of one terminal send outcome.
// Exactly one is created per Send call, regardless of retry count.
type DeliveryMetric struct {
	RecipientMasked   string    `json:"recipient_masked"`
	Channel           Channel   `json:"channel"`
	Type              string    `json:"type"`
	Status            string    `json:"status"` // "sent" or "failed"
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	Error             string    `json:"error,omitempty"`
	DurationMs        int64     `json:"duration_ms"`
	Timestamp         time.Time `json:"timestamp"`
}

// DeliveryStats aggregates metrics over a time range for dashboards.
type DeliveryStats struct {
	Total         int            `json:"total"`
	Sent          int            `json:"sent"`
	Failed        int            `json:"failed"`
	ByType        map[string]int `json:"by_type"`
	AvgDurationMs float64        `json:"avg_duration_ms"`
}
