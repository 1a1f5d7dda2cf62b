package expiry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"gymnotify/internal/dispatch"
	"gymnotify/internal/models"
	"gymnotify/internal/validate"
)

// OpsAlerter receives a human-readable summary after each scan run.
type OpsAlerter interface {
	Notify(ctx context.Context, text string)
}

// Job is the daily batch that finds memberships ending exactly horizon days
// out and notifies each subscriber once. Intended to run once per calendar
// day; the exact-date match means a skipped day misses that cohort.
type Job struct {
	store       Store
	sms         dispatch.Sender
	email       dispatch.Sender
	ops         OpsAlerter
	horizonDays int
	pacing      time.Duration
	logger      *logrus.Logger

	// notified guards against double-sends when the job runs twice on the
	// same day. Process-local: a restart between two same-day runs loses it.
	mu       sync.Mutex
	notified map[string]bool

	now func() time.Time
}

// NewJob builds the scan job. ops may be nil.
func NewJob(store Store, sms, email dispatch.Sender, ops OpsAlerter, horizonDays int, pacing time.Duration, logger *logrus.Logger) *Job {
	if horizonDays <= 0 {
		horizonDays = 3
	}
	if pacing <= 0 {
		pacing = time.Second
	}
	return &Job{
		store:       store,
		sms:         sms,
		email:       email,
		ops:         ops,
		horizonDays: horizonDays,
		pacing:      pacing,
		logger:      logger,
		notified:    make(map[string]bool),
		now:         time.Now,
	}
}

// Run executes one scan pass. A single candidate's failure is captured in
// the report and never aborts the rest; Run itself only returns an error
// when the membership store is unreachable.
func (j *Job) Run(ctx context.Context) (models.ScanReport, error) {
	now := j.now()
	target := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, j.horizonDays)
	targetDay := target.Format("2006-01-02")

	// Drop dedupe entries for past target days so the guard doesn't grow
	// for the life of the process. Date strings compare lexicographically.
	j.mu.Lock()
	for k := range j.notified {
		if i := strings.IndexByte(k, ':'); i >= 0 && k[i+1:] < targetDay {
			delete(j.notified, k)
		}
	}
	j.mu.Unlock()

	report := models.ScanReport{Results: []models.ScanResult{}}

	checked, err := j.store.CountActive(ctx)
	if err != nil {
		return report, fmt.Errorf("expiry scan failed: %w", err)
	}
	report.Checked = checked

	candidates, err := j.store.FindExpiring(ctx, target)
	if err != nil {
		return report, fmt.Errorf("expiry scan failed: %w", err)
	}
	report.Expiring = len(candidates)
	j.logger.Infof("Expiry scan: %d active memberships, %d expiring on %s", checked, len(candidates), targetDay)

	pacer := rate.NewLimiter(rate.Every(j.pacing), 1)
	for _, c := range candidates {
		key := fmt.Sprintf("%d:%s", c.MemberID, targetDay)
		j.mu.Lock()
		seen := j.notified[key]
		j.mu.Unlock()
		if seen {
			j.logger.Debugf("Member %d already notified for %s, skipping", c.MemberID, targetDay)
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			j.logger.Warnf("Expiry scan aborted: %v", err)
			break
		}

		res := j.notify(ctx, c, target)
		if res.Result.Success {
			report.Sent++
			j.mu.Lock()
			j.notified[key] = true
			j.mu.Unlock()
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}

	j.logger.Infof("Expiry scan done: checked=%d expiring=%d sent=%d failed=%d",
		report.Checked, report.Expiring, report.Sent, report.Failed)
	if j.ops != nil {
		j.ops.Notify(ctx, fmt.Sprintf(
			"Expiry scan for %s: %d expiring, %d notified, %d failed (of %d active members)",
			targetDay, report.Expiring, report.Sent, report.Failed, report.Checked))
	}
	return report, nil
}

// notify builds and dispatches one reminder, preferring SMS when the member
// has a phone on file.
func (j *Job) notify(ctx context.Context, c models.ExpiryCandidate, target time.Time) models.ScanResult {
	req := models.NotificationRequest{
		Body: fmt.Sprintf("Hi %s, your %s membership expires on %s. Renew at the front desk or in the app to keep training.",
			c.Name, c.PlanName, target.Format("Jan 2, 2006")),
		Subject: "Your membership is expiring soon",
		Type:    "expiry_reminder",
		Metadata: map[string]string{
			"member_id": fmt.Sprintf("%d", c.MemberID),
		},
	}

	switch {
	case c.Phone != "":
		req.Channel = models.ChannelSMS
		req.Recipient = c.Phone
		return models.ScanResult{
			MemberID:  c.MemberID,
			Channel:   models.ChannelSMS,
			Recipient: validate.Mask(c.Phone),
			Result:    j.sms.Send(ctx, req),
		}
	case c.Email != "":
		req.Channel = models.ChannelEmail
		req.Recipient = c.Email
		return models.ScanResult{
			MemberID:  c.MemberID,
			Channel:   models.ChannelEmail,
			Recipient: validate.Mask(c.Email),
			Result:    j.email.Send(ctx, req),
		}
	default:
		j.logger.Warnf("Member %d has no contact details on file", c.MemberID)
		return models.ScanResult{
			MemberID: c.MemberID,
			Result: models.DispatchResult{
				Code:  models.CodeInvalidRecipient,
				Error: "member has no phone or email on file",
			},
		}
	}
}
