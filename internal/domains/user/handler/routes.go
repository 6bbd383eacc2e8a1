package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/mid"
	"go.opentelemetry.io/otel/trace"
)

type Conf struct {
	Router  *gin.Engine
	UserBus *bus.Bus
	Auth    *auth.Auth
	Tracer  trace.Tracer
}

// RegisterRoutes adds the user endpoints under /v1/users.
func RegisterRoutes(cfg Conf) {
	h := handler{
		userBus: cfg.UserBus,
		tracer:  cfg.Tracer,
	}

	users := cfg.Router.Group("/v1/users", mid.Authenticate(cfg.Auth))

	read := mid.Authorized(cfg.Auth, auth.RoleAdmin, auth.RoleViewer)
	write := mid.Authorized(cfg.Auth, auth.RoleAdmin)

	users.GET("", read, h.query)
	users.GET("/:id", read, h.queryByID)
	users.POST("", write, h.createUser)
	users.PUT("/:id", write, h.updateUser)
	users.DELETE("/:id", write, h.deleteUser)
}
