package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/internal/domains/address/bus"
	"github.com/hamidoujand/usersadmin/internal/mid"
	"go.opentelemetry.io/otel/trace"
)

type Conf struct {
	Router  *gin.Engine
	AddrBus *bus.Bus
	Auth    *auth.Auth
	Tracer  trace.Tracer
}

// RegisterRoutes adds the address endpoints under /v1/users/:id/addresses.
func RegisterRoutes(cfg Conf) {
	h := handler{
		addrBus: cfg.AddrBus,
		tracer:  cfg.Tracer,
	}

	addrs := cfg.Router.Group("/v1/users/:id/addresses", mid.Authenticate(cfg.Auth))

	read := mid.Authorized(cfg.Auth, auth.RoleAdmin, auth.RoleViewer)
	write := mid.Authorized(cfg.Auth, auth.RoleAdmin)

	addrs.GET("", read, h.queryByUser)
	addrs.GET("/current", read, h.queryCurrent)
	addrs.POST("", write, h.createAddress)
	addrs.PUT("/:type/:validFrom", write, h.updateAddress)
	addrs.DELETE("/:type/:validFrom", write, h.deleteAddress)
}
