package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/dispatch"
	"gymnotify/internal/expiry"
	"gymnotify/internal/metrics"
	"gymnotify/internal/models"
)

type Handler struct {
	sms      dispatch.Sender
	email    dispatch.Sender
	bulk     *dispatch.BulkSender
	job      *expiry.Job
	recorder *metrics.Recorder
	feed     *Feed
	logger   *logrus.Logger
}

func NewHandler(sms, email dispatch.Sender, bulk *dispatch.BulkSender, job *expiry.Job, recorder *metrics.Recorder, feed *Feed, logger *logrus.Logger) *Handler {
	return &Handler{sms: sms, email: email, bulk: bulk, job: job, recorder: recorder, feed: feed, logger: logger}
}

// SendSMS dispatches one SMS and maps the engine outcome to an HTTP status.
func (h *Handler) SendSMS(c *gin.Context) {
	h.send(c, h.sms, models.ChannelSMS)
}

// SendEmail dispatches one email.
func (h *Handler) SendEmail(c *gin.Context) {
	h.send(c, h.email, models.ChannelEmail)
}

func (h *Handler) send(c *gin.Context, sender dispatch.Sender, channel models.Channel) {
	var req models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Channel = channel

	res := sender.Send(c.Request.Context(), req)
	writeResult(c, res)
}

// SendBulkSMS dispatches a paced, strictly sequential batch of SMS.
func (h *Handler) SendBulkSMS(c *gin.Context) {
	var body struct {
		Messages []models.NotificationRequest `json:"messages" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Errorf("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for i := range body.Messages {
		body.Messages[i].Channel = models.ChannelSMS
	}

	results := h.bulk.SendAll(c.Request.Context(), body.Messages)
	sent := 0
	for _, r := range results {
		if r.Success {
			sent++
		}
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent, "failed": len(results) - sent, "results": results})
}

// RunExpiryCheck triggers one expiry scan pass outside the daily schedule.
func (h *Handler) RunExpiryCheck(c *gin.Context) {
	if h.job == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "expiry scan requires a configured database"})
		return
	}
	report, err := h.job.Run(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Expiry check failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Stats returns aggregated delivery metrics for a time range (default: the
// last 24 hours).
func (h *Handler) Stats(c *gin.Context) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
			return
		}
		start = t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
			return
		}
		end = t
	}

	stats, err := h.recorder.Stats(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Errorf("Stats query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// writeResult maps a dispatch outcome to an HTTP response.
func writeResult(c *gin.Context, res models.DispatchResult) {
	switch {
	case res.Success:
		c.JSON(http.StatusOK, res)
	case res.Code == models.CodeInvalidRecipient:
		c.JSON(http.StatusBadRequest, res)
	case res.Code == models.CodeRateLimited:
		retryAfter := 0
		if res.RetryAfter != nil {
			retryAfter = int(time.Until(*res.RetryAfter).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, res)
	case res.Code == models.CodeConfigurationError:
		c.JSON(http.StatusServiceUnavailable, res)
	default:
		c.JSON(http.StatusBadGateway, res)
	}
}
