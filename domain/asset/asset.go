package asset

import (
	"math/big"

	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/order"
)

// TransferItem describes one NFT position for batch transfers
type TransferItem struct {
	UnitModel     order.UnitModel `json:"unitModel"`
	AssetContract domain.Address  `json:"assetContract"`
	TokenId       domain.TokenId  `json:"tokenId"`
	// Amount of units to move; ignored for the single unit model
	Amount string `json:"amount"`
}

// Checkpointer lets the fill engine undo every mutation made after a mark.
// The engine takes a checkpoint before touching any balance and reverts it
// when a fill fails partway, which is what makes fills all-or-nothing.
type Checkpointer interface {
	Checkpoint() int
	Revert(checkpoint int)
}

// NFTLedger is the uniform transfer surface across the two NFT unit models
type NFTLedger interface {
	Checkpointer

	OwnerOf(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId) (domain.Address, error)
	BalanceOf(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, owner domain.Address) (*big.Int, error)

	// TransferSingle moves an indivisible unit, amount always 1
	TransferSingle(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, from, to domain.Address) error
	// TransferMulti moves `amount` fungible units sharing one id
	TransferMulti(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, from, to domain.Address, amount *big.Int) error

	MintSingle(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, owner domain.Address) error
	MintMulti(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, owner domain.Address, amount *big.Int) error
}

// FundLedger holds native and token currency balances. The native currency
// is addressed by domain.NativeToken.
type FundLedger interface {
	Checkpointer

	BalanceOf(c ctx.Ctx, token, owner domain.Address) (*big.Int, error)
	Transfer(c ctx.Ctx, token domain.Address, from, to domain.Address, amount *big.Int) error

	// Deposit wraps `amount` of the owner's native currency into `token`
	Deposit(c ctx.Ctx, token, owner domain.Address, amount *big.Int) error
	// Withdraw unwraps `amount` of `token` back into native currency
	Withdraw(c ctx.Ctx, token, owner domain.Address, amount *big.Int) error

	Mint(c ctx.Ctx, token, owner domain.Address, amount *big.Int) error
}
