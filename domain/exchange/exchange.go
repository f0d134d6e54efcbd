package exchange

import (
	"math/big"

	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/asset"
	"github.com/x-xyz/goexchange/domain/order"
	"github.com/x-xyz/goexchange/domain/swap"
)

// FillRequest carries everything a taker presents to fill one order
type FillRequest struct {
	Order     order.Order     `json:"order"`
	Signature order.Signature `json:"signature"`
	// FillUnits is the number of NFT units to fill, up to the remaining units
	FillUnits string `json:"fillUnits"`
	// TokenId is the concrete id offered against an allowlisted or any-id
	// offer; ignored for explicit-id orders
	TokenId domain.TokenId  `json:"tokenId"`
	Proof   []domain.Hash32 `json:"proof"`
	// UnwrapNative converts the wrapped payment currency to native before
	// paying the final recipients
	UnwrapNative bool `json:"unwrapNative"`
	// Legs assemble the payment currency from other held currencies via the
	// swap adapter
	Legs []swap.Leg `json:"legs"`
}

// FillResult is the order-filled record surfaced to external observers.
// PaymentAmount is the order's full nominal amount and FillUnits the units
// actually filled; consumers reconstruct the effective partial-fill price as
// paymentAmount * fillUnits / quantity.
type FillResult struct {
	Direction     order.Direction  `json:"direction"`
	Maker         domain.Address   `json:"maker"`
	Taker         domain.Address   `json:"taker"`
	Nonce         string           `json:"nonce"`
	PaymentToken  domain.Address   `json:"paymentToken"`
	PaymentAmount string           `json:"paymentAmount"`
	AssetContract domain.Address   `json:"assetContract"`
	TokenId       domain.TokenId   `json:"tokenId"`
	FillUnits     string           `json:"fillUnits"`
	OrderHash     domain.OrderHash `json:"orderHash"`
}

// CancelResult is the order-cancelled record
type CancelResult struct {
	Maker domain.Address `json:"maker"`
	Nonce string         `json:"nonce"`
}

// ReceivedPayload is the order bundle embedded in a push-based transfer
type ReceivedPayload struct {
	Order        order.Order     `json:"order"`
	Signature    order.Signature `json:"signature"`
	Proof        []domain.Hash32 `json:"proof"`
	UnwrapNative bool            `json:"unwrapNative"`
}

// InboundNFT describes an NFT unit pushed directly to the engine together
// with its embedded fulfillment payload
type InboundNFT struct {
	From          domain.Address  `json:"from"`
	AssetContract domain.Address  `json:"assetContract"`
	TokenId       domain.TokenId  `json:"tokenId"`
	Amount        string          `json:"amount"`
	Payload       ReceivedPayload `json:"payload"`
}

type UseCase interface {
	// BuyNFT fills a sell order: the taker pays native currency and
	// receives the NFT. valueProvided is escrowed up front; any excess over
	// the scaled price plus fees is refunded.
	BuyNFT(c ctx.Ctx, taker domain.Address, valueProvided *big.Int, req *FillRequest) (*FillResult, error)

	// SellNFT fills a buy order: the taker hands over the NFT and is paid
	// from the maker's wrapped-currency balance
	SellNFT(c ctx.Ctx, taker domain.Address, req *FillRequest) (*FillResult, error)

	// FillMany drives BuyNFT over parallel arrays of sell orders. Atomic
	// when revertIfIncomplete, best-effort otherwise; unconsumed value is
	// refunded in both modes.
	FillMany(c ctx.Ctx, taker domain.Address, valueProvided *big.Int, orders []order.Order, sigs []order.Signature, fillUnits []string, revertIfIncomplete bool) ([]*FillResult, error)

	// OnNFTReceived is the push-based entry: the inbound transfer satisfies
	// the NFT leg of the embedded buy order and payment flows back to the
	// sender
	OnNFTReceived(c ctx.Ctx, inbound *InboundNFT) (*FillResult, error)

	// TransferMany moves every listed NFT position from caller to
	// recipient, all-or-nothing
	TransferMany(c ctx.Ctx, caller domain.Address, items []asset.TransferItem, to domain.Address) error

	// TransferManyAndCancel additionally cancels the caller's nonces in the
	// same atomic unit
	TransferManyAndCancel(c ctx.Ctx, caller domain.Address, items []asset.TransferItem, to domain.Address, nonces []string) error

	// CancelOrder marks (maker, nonce) cancelled; idempotent
	CancelOrder(c ctx.Ctx, maker domain.Address, nonce string) (*CancelResult, error)

	// RemainingUnits reports the unfilled units of an order
	RemainingUnits(c ctx.Ctx, o *order.Order) (*big.Int, error)
}
