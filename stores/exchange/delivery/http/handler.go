package http

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/delivery"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/asset"
	"github.com/x-xyz/goexchange/domain/exchange"
	"github.com/x-xyz/goexchange/domain/order"
	"golang.org/x/xerrors"
)

type handler struct {
	exchange exchange.UseCase
}

// New registers the fill and transfer endpoints
func New(e *echo.Echo, exchangeUC exchange.UseCase) {
	h := &handler{
		exchange: exchangeUC,
	}

	g := e.Group("/exchange")
	g.POST("/buy", h.buy)
	g.POST("/sell", h.sell)
	g.POST("/fillMany", h.fillMany)
	g.POST("/received", h.received)
	g.POST("/cancel", h.cancel)
	g.POST("/transferMany", h.transferMany)
	g.POST("/remainingUnits", h.remainingUnits)
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedOrder),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrInvalidProof),
		errors.Is(err, domain.ErrArrayLengthMismatch),
		errors.Is(err, domain.ErrInvalidChainId),
		errors.Is(err, domain.ErrInvalidNumberFormat),
		errors.Is(err, domain.ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderExpired),
		errors.Is(err, domain.ErrOrderUnfillable),
		errors.Is(err, domain.ErrTakerMismatch),
		errors.Is(err, domain.ErrQuantityExceeded),
		errors.Is(err, domain.ErrInsufficientPayment),
		errors.Is(err, domain.ErrTransferFailed),
		errors.Is(err, domain.ErrRollbackTargetNotFound):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func parseValue(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	val, ok := new(big.Int).SetString(s, 10)
	if !ok || val.Sign() < 0 {
		return nil, xerrors.Errorf("invalid value %q: %w", s, domain.ErrBadParamInput)
	}
	return val, nil
}

func (h *handler) buy(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Taker   domain.Address       `json:"taker" validate:"required"`
		Value   string               `json:"value"`
		Request exchange.FillRequest `json:"request" validate:"required"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	value, err := parseValue(p.Value)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.exchange.BuyNFT(ctx, p.Taker, value, &p.Request)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) sell(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Taker   domain.Address       `json:"taker" validate:"required"`
		Request exchange.FillRequest `json:"request" validate:"required"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.exchange.SellNFT(ctx, p.Taker, &p.Request)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) fillMany(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Taker              domain.Address    `json:"taker" validate:"required"`
		Value              string            `json:"value"`
		Orders             []order.Order     `json:"orders" validate:"required"`
		Signatures         []order.Signature `json:"signatures" validate:"required"`
		FillUnits          []string          `json:"fillUnits" validate:"required"`
		RevertIfIncomplete bool              `json:"revertIfIncomplete"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	value, err := parseValue(p.Value)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.exchange.FillMany(ctx, p.Taker, value, p.Orders, p.Signatures, p.FillUnits, p.RevertIfIncomplete)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) received(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := exchange.InboundNFT{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.exchange.OnNFTReceived(ctx, &p)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Maker domain.Address `json:"maker" validate:"required"`
		Nonce string         `json:"nonce" validate:"required"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.exchange.CancelOrder(ctx, p.Maker, p.Nonce)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) transferMany(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := struct {
		Caller domain.Address       `json:"caller" validate:"required"`
		To     domain.Address       `json:"to" validate:"required"`
		Items  []asset.TransferItem `json:"items" validate:"required"`
		Nonces []string             `json:"nonces"`
	}{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	var err error
	if len(p.Nonces) > 0 {
		err = h.exchange.TransferManyAndCancel(ctx, p.Caller, p.Items, p.To, p.Nonces)
	} else {
		err = h.exchange.TransferMany(ctx, p.Caller, p.Items, p.To)
	}
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) remainingUnits(c echo.Context) error {
	ctx := c.Get("ctx").(bCtx.Ctx)

	p := order.Order{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	remaining, err := h.exchange.RemainingUnits(ctx, &p)
	if err != nil {
		return delivery.MakeJsonResp(c, errStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, remaining.String())
}
