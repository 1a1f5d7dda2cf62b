package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gymnotify/internal/models"
)

// ErrInvalidFormat is returned when a recipient cannot be normalized into a
// deliverable address for its channel.
var ErrInvalidFormat = errors.New("invalid recipient format")

var (
	e164Re  = regexp.MustCompile(`^\+[0-9]{2,15}$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Recipient normalizes raw into a canonical destination address for the
// given channel. SMS numbers come back E.164-formatted; emails are lowercased.
// Pure function, no side effects.
func Recipient(raw string, channel models.Channel, defaultCountryCode string) (string, error) {
	switch channel {
	case models.ChannelSMS:
		return phone(raw, defaultCountryCode)
	case models.ChannelEmail:
		return email(raw)
	default:
		return "", fmt.Errorf("unsupported channel %q: %w", channel, ErrInvalidFormat)
	}
}

func phone(raw, defaultCountryCode string) (string, error) {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if e164Re.MatchString(cleaned) {
		return cleaned, nil
	}

	// Local number: prepend the configured country code, dropping a leading
	// trunk zero. Anything shorter than a plausible subscriber number would
	// otherwise sneak through as the bare country code.
	if len(strings.TrimPrefix(cleaned, "+")) < 6 {
		return "", fmt.Errorf("phone number %q: %w", Mask(raw), ErrInvalidFormat)
	}
	withCC := defaultCountryCode + strings.TrimPrefix(cleaned, "0")
	if e164Re.MatchString(withCC) {
		return withCC, nil
	}
	return "", fmt.Errorf("phone number %q: %w", Mask(raw), ErrInvalidFormat)
}

func email(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(addr) {
		return "", fmt.Errorf("email address %q: %w", Mask(raw), ErrInvalidFormat)
	}
	return addr, nil
}

// Mask returns a privacy-safe representation of an address for logs and
// metrics: first 4 and last 4 characters visible, interior replaced with a
// fixed-length run. Never use the result for an actual provider call.
func Mask(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
