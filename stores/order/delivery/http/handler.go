package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/delivery"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/order"
)

type handler struct {
	order order.UseCase
}

type listedOrder struct {
	*order.Order
	DisplayPrice string `json:"displayPrice,omitempty"`
}

// New registers the order book endpoints
func New(e *echo.Echo, orderUC order.UseCase) {
	h := &handler{
		order: orderUC,
	}

	g := e.Group("/orders")
	g.POST("", h.makeOrder)
	g.GET("", h.findAll)
	g.GET("/:chainId/:orderHash", h.getOrder)
	g.POST("/cancelByNonce", h.cancelByNonce)
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedOrder),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrInvalidChainId),
		errors.Is(err, domain.ErrInvalidNumberFormat),
		errors.Is(err, domain.ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderExpired),
		errors.Is(err, domain.ErrOrderUnfillable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *handler) makeOrder(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Order     order.Order     `json:"order" validate:"required"`
		Signature order.Signature `json:"signature" validate:"required"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.order.MakeOrder(ctx, p.Order, p.Signature)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) findAll(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		ChainId       *domain.ChainId  `query:"chainId"`
		Maker         *domain.Address  `query:"maker"`
		AssetContract *domain.Address  `query:"assetContract"`
		Direction     *order.Direction `query:"direction"`
		IsCancelled   *bool            `query:"isCancelled"`
		Offset        int32            `query:"offset"`
		Limit         int32            `query:"limit"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []order.FindAllOptionsFunc{}
	if p.ChainId != nil {
		opts = append(opts, order.WithChainId(*p.ChainId))
	}
	if p.Maker != nil {
		opts = append(opts, order.WithMaker(*p.Maker))
	}
	if p.AssetContract != nil {
		opts = append(opts, order.WithAssetContract(*p.AssetContract))
	}
	if p.Direction != nil {
		opts = append(opts, order.WithDirection(*p.Direction))
	}
	if p.IsCancelled != nil {
		opts = append(opts, order.WithIsCancelled(*p.IsCancelled))
	}
	if p.Limit > 0 {
		opts = append(opts, order.WithPagination(p.Offset, p.Limit))
	}

	res, err := h.order.FindAll(ctx, opts...)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}

	items := make([]listedOrder, 0, len(res))
	for _, o := range res {
		item := listedOrder{Order: o}
		if price, err := o.DisplayPrice(); err == nil {
			item.DisplayPrice = price.String()
		}
		items = append(items, item)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, items)
}

func (h *handler) getOrder(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		ChainId   domain.ChainId   `param:"chainId" validate:"required"`
		OrderHash domain.OrderHash `param:"orderHash" validate:"required"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.order.GetOrder(ctx, order.Id{ChainId: p.ChainId, OrderHash: p.OrderHash.ToLower()})
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) cancelByNonce(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		ChainId domain.ChainId `json:"chainId" validate:"required"`
		Maker   domain.Address `json:"maker" validate:"required"`
		Nonce   string         `json:"nonce" validate:"required"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if err := h.order.CancelByNonce(ctx, p.ChainId, p.Maker, p.Nonce); err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}
