package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/delivery"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/registry"
)

type handler struct {
	registry registry.UseCase
	// catalog holds the deployable feature implementations by name; extend
	// requests may only install implementations listed here
	catalog map[string]registry.Feature
}

// New registers the feature registry endpoints
func New(e *echo.Echo, registryUC registry.UseCase, catalog map[string]registry.Feature) {
	h := &handler{
		registry: registryUC,
		catalog:  catalog,
	}

	g := e.Group("/registry")
	g.GET("/:selector", h.get)
	g.GET("/:selector/rollbackLength", h.rollbackLength)
	g.POST("/:selector/extend", h.extend)
	g.POST("/:selector/rollback", h.rollback)
	g.POST("/:selector/dispatch", h.dispatch)
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRollbackTargetNotFound):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	f, err := h.registry.Get(ctx, registry.Selector(c.Param("selector")))
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	name := registry.NoneName
	if f != nil {
		name = f.Name()
	}
	return delivery.MakeJsonResp(c, http.StatusOK, map[string]string{"name": name})
}

func (h *handler) rollbackLength(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	n, err := h.registry.RollbackLength(ctx, registry.Selector(c.Param("selector")))
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, map[string]int{"rollbackLength": n})
}

func (h *handler) extend(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Caller  domain.Address `json:"caller" validate:"required"`
		Feature string         `json:"feature" validate:"required"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	f, ok := h.catalog[p.Feature]
	if !ok {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "unknown feature")
	}
	if err := h.registry.Extend(ctx, p.Caller, registry.Selector(c.Param("selector")), f); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) rollback(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Caller domain.Address `json:"caller" validate:"required"`
		Target string         `json:"target"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if err := h.registry.Rollback(ctx, p.Caller, registry.Selector(c.Param("selector")), p.Target); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) dispatch(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Payload []byte `json:"payload"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	out, err := h.registry.Dispatch(ctx, registry.Selector(c.Param("selector")), p.Payload)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, out)
}
