package exchange

import (
	"math/big"

	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/asset"
)

// StateRepo tracks cancellation per (maker, nonce) and consumption per order
// hash. A fill record only materializes on the first consume; until then the
// remaining units equal the order's full quantity.
type StateRepo interface {
	asset.Checkpointer

	IsCancelled(c ctx.Ctx, maker domain.Address, nonce string) (bool, error)

	// Cancel is idempotent and permanent
	Cancel(c ctx.Ctx, maker domain.Address, nonce string) error

	// RemainingUnits returns fullQuantity when no fill record exists yet
	RemainingUnits(c ctx.Ctx, hash domain.OrderHash, fullQuantity *big.Int) (*big.Int, error)

	// Consume decrements the remaining units, creating the record first if
	// absent; fails with ErrQuantityExceeded when units > remaining
	Consume(c ctx.Ctx, hash domain.OrderHash, units, fullQuantity *big.Int) error
}
