package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/internal/mid"
	"github.com/hamidoujand/usersadmin/internal/notify"
	"github.com/hamidoujand/usersadmin/pkg/logger"
)

const (
	defaultBuffer    = 64
	defaultHeartbeat = 15 * time.Second
)

type Conf struct {
	Router *gin.Engine
	Hub    *notify.Hub
	Auth   *auth.Auth
	Log    *logger.Logger

	// Heartbeat is the interval of keep alive pings, 15s when zero.
	Heartbeat time.Duration
}

// RegisterRoutes adds GET /v1/events, readable by every operator role.
func RegisterRoutes(cfg Conf) {
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	h := handler{
		hub:       cfg.Hub,
		log:       cfg.Log,
		buffer:    defaultBuffer,
		heartbeat: heartbeat,
	}

	read := mid.Authorized(cfg.Auth, auth.RoleAdmin, auth.RoleViewer)
	cfg.Router.GET("/v1/events", mid.Authenticate(cfg.Auth), read, h.stream)
}
