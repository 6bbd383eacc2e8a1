// Package handler exposes the user directory over http.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/order"
	"github.com/hamidoujand/usersadmin/internal/page"
	"go.opentelemetry.io/otel/trace"
)

type handler struct {
	userBus *bus.Bus
	tracer  trace.Tracer
}

func (h *handler) createUser(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "user.handler.createUser")
	defer span.End()

	var nu newUser
	if err := c.ShouldBindJSON(&nu); err != nil {
		_ = c.Error(errs.FromBinding(err))
		return
	}

	usr, err := h.userBus.Create(ctx, toBusNewUser(nu))
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusCreated, toAppUser(usr))
}

func (h *handler) queryByID(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "user.handler.queryByID")
	defer span.End()

	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	usr, err := h.userBus.QueryByID(ctx, id)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, toAppUser(usr))
}

func (h *handler) updateUser(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "user.handler.updateUser")
	defer span.End()

	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var uu updateUser
	if err := c.ShouldBindJSON(&uu); err != nil {
		_ = c.Error(errs.FromBinding(err))
		return
	}

	upd, err := toBusUpdateUser(uu)
	if err != nil {
		_ = c.Error(errs.Newf(http.StatusBadRequest, "toBusUpdateUser: %s", err))
		return
	}

	usr, err := h.userBus.QueryByID(ctx, id)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	updated, err := h.userBus.Update(ctx, usr, upd)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, toAppUser(updated))
}

func (h *handler) deleteUser(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "user.handler.deleteUser")
	defer span.End()

	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	usr, err := h.userBus.QueryByID(ctx, id)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	if err := h.userBus.Delete(ctx, usr); err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) query(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "user.handler.query")
	defer span.End()

	pg, err := page.Parse(c.Query("page"), c.Query("pageSize"))
	if err != nil {
		_ = c.Error(errs.Newf(http.StatusBadRequest, "page: %s", err))
		return
	}

	orderBy, err := order.Parse(bus.OrderByFields, c.Query("orderBy"), bus.DefaultOrderBy)
	if err != nil {
		_ = c.Error(errs.Newf(http.StatusBadRequest, "orderBy: %s", err))
		return
	}

	var f filters
	if err := c.ShouldBindQuery(&f); err != nil {
		_ = c.Error(errs.FromBinding(err))
		return
	}

	filter, err := f.toBusQueryFilter()
	if err != nil {
		_ = c.Error(errs.Newf(http.StatusBadRequest, "filter: %s", err))
		return
	}

	usrs, err := h.userBus.Query(ctx, filter, orderBy, pg)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	total, err := h.userBus.Count(ctx, filter)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, queryResult{
		Items:    toAppUsers(usrs),
		Total:    total,
		Page:     pg.Number,
		PageSize: pg.Rows,
	})
}

// ==============================================================================

// userID reads the ":id" path parameter.
func userID(c *gin.Context) (int64, error) {
	p := c.Param("id")

	id, err := strconv.ParseInt(p, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Newf(http.StatusBadRequest, "invalid user id: %s", p)
	}

	return id, nil
}
