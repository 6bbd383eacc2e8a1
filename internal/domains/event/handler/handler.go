// Package handler streams change events to the console as server sent events.
package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/notify"
	"github.com/hamidoujand/usersadmin/pkg/logger"
)

type subscriber interface {
	Subscribe(buffer int) (<-chan notify.Event, func())
}

type handler struct {
	hub       subscriber
	log       *logger.Logger
	buffer    int
	heartbeat time.Duration
}

// stream keeps the connection open and writes one event per change. The
// optional userId query narrows the stream to a single user.
func (h *handler) stream(c *gin.Context) {
	var userID int64
	if p := c.Query("userId"); p != "" {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			_ = c.Error(errs.Newf(http.StatusBadRequest, "invalid userId: %s", p))
			return
		}
		userID = id
	}

	ctx := c.Request.Context()

	events, cancel := h.hub.Subscribe(h.buffer)
	defer cancel()

	h.log.Info(ctx, "event stream opened", "userId", userID)
	defer h.log.Info(ctx, "event stream closed", "userId", userID)

	//the server write timeout must not cut long lived streams.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	//headers go out right away so clients see the stream is open.
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"userId": userID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false

		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true

		case e, ok := <-events:
			if !ok {
				return false
			}

			if userID != 0 && e.UserID != userID {
				return true
			}

			c.SSEvent(e.Name(), e)
			return true
		}
	})
}
