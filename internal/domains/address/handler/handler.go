// Package handler exposes the dated addresses of a user over http.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/domains/address/bus"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"go.opentelemetry.io/otel/trace"
)

type handler struct {
	addrBus *bus.Bus
	tracer  trace.Tracer
}

func (h *handler) createAddress(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "address.handler.createAddress")
	defer span.End()

	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var na newAddress
	if err := c.ShouldBindJSON(&na); err != nil {
		_ = c.Error(errs.FromBinding(err))
		return
	}

	busAddr, err := toBusNewAddress(id, na)
	if err != nil {
		_ = c.Error(errs.Newf(http.StatusBadRequest, "toBusNewAddress: %s", err))
		return
	}

	addr, err := h.addrBus.Create(ctx, busAddr)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusCreated, toAppAddress(addr))
}

func (h *handler) updateAddress(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "address.handler.updateAddress")
	defer span.End()

	key, err := addressKey(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var ua updateAddress
	if err := c.ShouldBindJSON(&ua); err != nil {
		_ = c.Error(errs.FromBinding(err))
		return
	}

	upd, err := toBusUpdateAddress(ua)
	if err != nil {
		_ = c.Error(errs.Newf(http.StatusBadRequest, "toBusUpdateAddress: %s", err))
		return
	}

	addr, err := h.addrBus.Update(ctx, key, upd)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, toAppAddress(addr))
}

func (h *handler) deleteAddress(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "address.handler.deleteAddress")
	defer span.End()

	key, err := addressKey(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.addrBus.Delete(ctx, key); err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) queryByUser(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "address.handler.queryByUser")
	defer span.End()

	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	addrs, err := h.addrBus.QueryByUser(ctx, id)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, toAppAddresses(addrs))
}

// queryCurrent returns the version in effect on asOf, today when omitted.
func (h *handler) queryCurrent(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "address.handler.queryCurrent")
	defer span.End()

	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	typ, err := bus.ParseAddressType(c.Query("type"))
	if err != nil {
		_ = c.Error(errs.Newf(http.StatusBadRequest, "%s", err))
		return
	}

	asOf := time.Now().UTC()
	if v := c.Query("asOf"); v != "" {
		asOf, err = bus.ParseDate(v)
		if err != nil {
			_ = c.Error(errs.Newf(http.StatusBadRequest, "%s", err))
			return
		}
	}

	addr, err := h.addrBus.QueryCurrent(ctx, id, typ, asOf)
	if err != nil {
		_ = c.Error(errs.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, toAppAddress(addr))
}

// ==============================================================================

func userID(c *gin.Context) (int64, error) {
	p := c.Param("id")

	id, err := strconv.ParseInt(p, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Newf(http.StatusBadRequest, "invalid user id: %s", p)
	}

	return id, nil
}

// addressKey reads ":id/:type/:validFrom".
func addressKey(c *gin.Context) (bus.Key, error) {
	id, err := userID(c)
	if err != nil {
		return bus.Key{}, err
	}

	typ, err := bus.ParseAddressType(c.Param("type"))
	if err != nil {
		return bus.Key{}, errs.Newf(http.StatusBadRequest, "%s", err)
	}

	validFrom, err := bus.ParseDate(c.Param("validFrom"))
	if err != nil {
		return bus.Key{}, errs.Newf(http.StatusBadRequest, "%s", err)
	}

	return bus.Key{UserID: id, AddressType: typ, ValidFrom: validFrom}, nil
}
