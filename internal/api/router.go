package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/config"
)

func NewRouter(h *Handler, logger *logrus.Logger, cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		api.POST("/notifications/sms", h.SendSMS)
		api.POST("/notifications/email", h.SendEmail)
		api.POST("/notifications/sms/bulk", h.SendBulkSMS)
		api.POST("/expiry-check/run", h.RunExpiryCheck)
		api.GET("/stats", h.Stats)
		api.GET("/feed", h.feed.Handle)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
