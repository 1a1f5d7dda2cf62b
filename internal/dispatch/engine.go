package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/metrics"
	"gymnotify/internal/models"
	"gymnotify/internal/providers"
	"gymnotify/internal/ratelimit"
	"gymnotify/internal/token"
	"gymnotify/internal/validate"
)

// Transport delivers one message to a canonical recipient and returns the
// provider's message ID.
type Transport interface {
	Send(ctx context.Context, to string, req models.NotificationRequest) (string, error)
}

// Recorder receives exactly one delivery metric per terminal outcome.
type Recorder interface {
	Record(m models.DeliveryMetric)
}

// Sender is the caller-facing surface of the engine, also satisfied by test
// doubles in the bulk sender, expiry job and kafka intake.
type Sender interface {
	Send(ctx context.Context, req models.NotificationRequest) models.DispatchResult
}

// Options tunes one engine instance.
type Options struct {
	MaxRetries         int
	BaseDelay          time.Duration
	AttemptTimeout     time.Duration
	DefaultCountryCode string
}

// Engine orchestrates one logical send end-to-end:
// validate -> rate-limit -> bounded retry against the transport -> record.
// One instance exists per channel; both share this implementation.
type Engine struct {
	channel   models.Channel
	transport Transport
	limiter   *ratelimit.Limiter
	recorder  Recorder
	logger    *logrus.Logger
	opts      Options

	sleep func(ctx context.Context, d time.Duration)
}

// NewEngine builds a channel engine.
func NewEngine(channel models.Channel, transport Transport, limiter *ratelimit.Limiter, recorder Recorder, logger *logrus.Logger, opts Options) *Engine {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Second
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	return &Engine{
		channel:   channel,
		transport: transport,
		limiter:   limiter,
		recorder:  recorder,
		logger:    logger,
		opts:      opts,
		sleep:     sleepCtx,
	}
}

// Send runs the full dispatch pipeline for one request and returns a
// discriminated outcome. Expected failure modes come back as result codes,
// never as panics.
func (e *Engine) Send(ctx context.Context, req models.NotificationRequest) models.DispatchResult {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	log := e.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"channel":    e.channel,
	})

	// Validate. Failures are logged but not counted as delivery attempts.
	canonical, err := validate.Recipient(req.Recipient, e.channel, e.opts.DefaultCountryCode)
	if err != nil {
		log.Warnf("Recipient rejected: %v", err)
		return models.DispatchResult{Code: models.CodeInvalidRecipient, Error: err.Error()}
	}
	masked := validate.Mask(canonical)
	log = log.WithField("recipient", masked)

	// Rate limits: per-recipient and global ceilings are ANDed; the first
	// rejection short-circuits. Rejected requests never reached the provider,
	// so no delivery metric is recorded for them.
	for _, check := range []struct {
		scope ratelimit.Scope
		key   string
	}{
		{ratelimit.ScopeRecipient, canonical},
		{ratelimit.ScopeGlobal, "global"},
	} {
		d := e.limiter.Check(check.scope, check.key)
		if !d.Allowed {
			metrics.ObserveRateLimited(string(check.scope))
			log.Warnf("Rate limited (scope=%s, reset=%s)", check.scope, d.ResetAt.Format(time.RFC3339))
			return models.DispatchResult{
				Code:         models.CodeRateLimited,
				Error:        "rate limit exceeded for scope " + string(check.scope),
				LimitedScope: string(check.scope),
				RetryAfter:   &d.ResetAt,
			}
		}
	}

	// Attempt loop with exponential backoff. The transport resolves its
	// credential on every attempt, so a token expiring mid-sequence refreshes.
	start := time.Now()
	var messageID string
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		attempts = attempt
		actx, cancel := context.WithTimeout(ctx, e.opts.AttemptTimeout)
		messageID, lastErr = e.transport.Send(actx, canonical, req)
		cancel()

		if lastErr == nil {
			break
		}
		log.Errorf("Attempt %d/%d failed: %v", attempt, e.opts.MaxRetries, lastErr)

		if !providers.IsRetryable(lastErr) {
			break
		}
		if attempt < e.opts.MaxRetries {
			e.sleep(ctx, e.opts.BaseDelay*(1<<(attempt-1)))
		}
	}

	// Exactly one metric per logical send, whatever the retry count was.
	duration := time.Since(start)
	m := models.DeliveryMetric{
		RecipientMasked: masked,
		Channel:         e.channel,
		Type:            req.Type,
		DurationMs:      duration.Milliseconds(),
		Timestamp:       time.Now(),
	}
	if lastErr == nil {
		m.Status = "sent"
		m.ProviderMessageID = messageID
	} else {
		m.Status = "failed"
		m.Error = lastErr.Error()
	}
	e.recorder.Record(m)

	if lastErr == nil {
		log.Infof("Dispatched in %s after %d attempt(s), message_id=%s", duration.Round(time.Millisecond), attempts, messageID)
		return models.DispatchResult{Success: true, MessageID: messageID}
	}

	code := models.CodeSendFailed
	if errors.Is(lastErr, token.ErrNotConfigured) {
		code = models.CodeConfigurationError
	}
	log.Errorf("Dispatch failed after %d attempt(s): %v", attempts, lastErr)
	return models.DispatchResult{Code: code, Error: lastErr.Error()}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
