package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gymnotify/internal/models"
)

const maxFeedClients = 10

// Feed broadcasts every recorded delivery metric to connected admin
// dashboards over websocket. It implements metrics.Publisher.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewFeed(logger *logrus.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]bool),
	}
}

// Publish fans one metric out to every connected client, dropping broken
// connections. Best-effort: the dispatch path never waits on a dashboard.
func (f *Feed) Publish(m models.DeliveryMetric) {
	payload, err := json.Marshal(m)
	if err != nil {
		f.logger.Errorf("Failed to encode feed event: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			f.logger.Warnf("Dropping feed client: %v", err)
			conn.Close()
			delete(f.conns, conn)
		}
	}
}

// Handle upgrades the request and keeps the connection registered until the
// client goes away.
func (f *Feed) Handle(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	f.mu.Lock()
	if len(f.conns) >= maxFeedClients {
		f.mu.Unlock()
		f.logger.Warn("Max feed clients reached, rejecting connection")
		conn.Close()
		return
	}
	f.conns[conn] = true
	total := len(f.conns)
	f.mu.Unlock()
	f.logger.Infof("Feed client connected (total: %d)", total)

	// Drain reads to notice closes; the feed is write-only.
	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.conns, conn)
			f.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
