package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnotify/internal/config"
	"gymnotify/internal/dispatch"
	"gymnotify/internal/expiry"
	"gymnotify/internal/metrics"
	"gymnotify/internal/models"
)

type stubSender struct {
	result models.DispatchResult
	gotReq models.NotificationRequest
}

func (s *stubSender) Send(_ context.Context, req models.NotificationRequest) models.DispatchResult {
	s.gotReq = req
	return s.result
}

type emptyStore struct{}

func (emptyStore) CountActive(context.Context) (int, error) { return 0, nil }
func (emptyStore) FindExpiring(context.Context, time.Time) ([]models.ExpiryCandidate, error) {
	return nil, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testRouter(sms, email dispatch.Sender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := testLogger()
	bulk := dispatch.NewBulkSender(sms, time.Millisecond, logger)
	job := expiry.NewJob(emptyStore{}, sms, email, nil, 3, time.Millisecond, logger)
	recorder := metrics.NewRecorder(nil, nil, logger)
	h := NewHandler(sms, email, bulk, job, recorder, NewFeed(logger), logger)

	cfg := config.Config{}
	cfg.API.BasePath = "/api/v0"
	return NewRouter(h, logger, cfg)
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSendSMSSuccess(t *testing.T) {
	sms := &stubSender{result: models.DispatchResult{Success: true, MessageID: "msg-1"}}
	r := testRouter(sms, &stubSender{})

	w := post(r, "/api/v0/notifications/sms", `{"recipient":"+12345678900","body":"hi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ChannelSMS, sms.gotReq.Channel, "handler pins the channel")

	var res models.DispatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "msg-1", res.MessageID)
	assert.NotContains(t, w.Body.String(), "retry_after", "only rate-limited results carry a reset time")
}

func TestSendSMSOutcomeMapping(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{models.CodeInvalidRecipient, http.StatusBadRequest},
		{models.CodeRateLimited, http.StatusTooManyRequests},
		{models.CodeConfigurationError, http.StatusServiceUnavailable},
		{models.CodeSendFailed, http.StatusBadGateway},
	}
	resetAt := time.Now().Add(time.Minute)
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			sms := &stubSender{result: models.DispatchResult{
				Code:       tt.code,
				Error:      "nope",
				RetryAfter: &resetAt,
			}}
			r := testRouter(sms, &stubSender{})

			w := post(r, "/api/v0/notifications/sms", `{"recipient":"+12345678900","body":"hi"}`)
			assert.Equal(t, tt.status, w.Code)
			if tt.code == models.CodeRateLimited {
				assert.NotEmpty(t, w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestSendSMSMalformedBody(t *testing.T) {
	r := testRouter(&stubSender{}, &stubSender{})
	w := post(r, "/api/v0/notifications/sms", `{"recipient":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendEmailUsesEmailEngine(t *testing.T) {
	email := &stubSender{result: models.DispatchResult{Success: true, MessageID: "msg-2"}}
	r := testRouter(&stubSender{}, email)

	w := post(r, "/api/v0/notifications/email", `{"recipient":"member@example.com","body":"hi","subject":"s"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ChannelEmail, email.gotReq.Channel)
}

func TestSendBulkSMS(t *testing.T) {
	sms := &stubSender{result: models.DispatchResult{Success: true, MessageID: "msg"}}
	r := testRouter(sms, &stubSender{})

	w := post(r, "/api/v0/notifications/sms/bulk",
		`{"messages":[{"recipient":"+12345678900","body":"a"},{"recipient":"+12345678901","body":"b"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Sent    int                     `json:"sent"`
		Failed  int                     `json:"failed"`
		Results []models.DispatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Sent)
	assert.Zero(t, out.Failed)
	assert.Len(t, out.Results, 2)
}

func TestRunExpiryCheck(t *testing.T) {
	r := testRouter(&stubSender{}, &stubSender{})
	w := post(r, "/api/v0/expiry-check/run", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var report models.ScanReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Zero(t, report.Expiring)
}

func TestStatsDefaultsAndBadRange(t *testing.T) {
	r := testRouter(&stubSender{}, &stubSender{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/stats?start=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r := testRouter(&stubSender{}, &stubSender{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
