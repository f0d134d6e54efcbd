package repository

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/log"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/asset"
	"golang.org/x/xerrors"
)

// journal records undo closures so a caller can revert every mutation made
// after a checkpoint. Mutations and reverts are serialized by the owning
// ledger's mutex.
type journal struct {
	undos []func()
}

func (j *journal) record(undo func()) {
	j.undos = append(j.undos, undo)
}

func (j *journal) checkpoint() int {
	return len(j.undos)
}

func (j *journal) revert(checkpoint int) {
	for i := len(j.undos) - 1; i >= checkpoint; i-- {
		j.undos[i]()
	}
	j.undos = j.undos[:checkpoint]
}

func positionKey(contract domain.Address, tokenId domain.TokenId) string {
	return fmt.Sprintf("%s/%s", contract.ToLowerStr(), tokenId)
}

func holdingKey(contract domain.Address, tokenId domain.TokenId, owner domain.Address) string {
	return fmt.Sprintf("%s/%s/%s", contract.ToLowerStr(), tokenId, owner.ToLowerStr())
}

func balanceKey(token, owner domain.Address) string {
	return fmt.Sprintf("%s/%s", token.ToLowerStr(), owner.ToLowerStr())
}

type nftLedgerImpl struct {
	mu sync.Mutex
	j  journal

	// single-unit ownership, position -> owner
	owners map[string]domain.Address
	// fungible-multi holdings, position+owner -> units
	holdings map[string]*big.Int
}

// NewNFTLedger returns an in-memory NFT ledger covering both unit models
func NewNFTLedger() asset.NFTLedger {
	return &nftLedgerImpl{
		owners:   map[string]domain.Address{},
		holdings: map[string]*big.Int{},
	}
}

func (im *nftLedgerImpl) Checkpoint() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.j.checkpoint()
}

func (im *nftLedgerImpl) Revert(checkpoint int) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.j.revert(checkpoint)
}

func (im *nftLedgerImpl) OwnerOf(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId) (domain.Address, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	owner, ok := im.owners[positionKey(contract, tokenId)]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func (im *nftLedgerImpl) BalanceOf(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, owner domain.Address) (*big.Int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if held, ok := im.owners[positionKey(contract, tokenId)]; ok {
		if held.Equals(owner) {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	}
	if units, ok := im.holdings[holdingKey(contract, tokenId, owner)]; ok {
		return new(big.Int).Set(units), nil
	}
	return big.NewInt(0), nil
}

func (im *nftLedgerImpl) setOwner(contract domain.Address, tokenId domain.TokenId, owner domain.Address) {
	key := positionKey(contract, tokenId)
	prev, existed := im.owners[key]
	im.owners[key] = owner.ToLower()
	im.j.record(func() {
		if existed {
			im.owners[key] = prev
		} else {
			delete(im.owners, key)
		}
	})
}

func (im *nftLedgerImpl) setHolding(contract domain.Address, tokenId domain.TokenId, owner domain.Address, units *big.Int) {
	key := holdingKey(contract, tokenId, owner)
	prev, existed := im.holdings[key]
	im.holdings[key] = units
	im.j.record(func() {
		if existed {
			im.holdings[key] = prev
		} else {
			delete(im.holdings, key)
		}
	})
}

func (im *nftLedgerImpl) TransferSingle(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, from, to domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	owner, ok := im.owners[positionKey(contract, tokenId)]
	if !ok || !owner.Equals(from) {
		c.WithFields(log.Fields{
			"contract": contract,
			"tokenId":  tokenId,
			"from":     from,
		}).Warn("single-unit transfer from non-owner")
		return xerrors.Errorf("token %s/%s not owned by %s: %w", contract, tokenId, from, domain.ErrTransferFailed)
	}
	im.setOwner(contract, tokenId, to)
	return nil
}

func (im *nftLedgerImpl) TransferMulti(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, from, to domain.Address, amount *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return xerrors.Errorf("non-positive amount: %w", domain.ErrTransferFailed)
	}
	held := im.holdings[holdingKey(contract, tokenId, from)]
	if held == nil || held.Cmp(amount) < 0 {
		c.WithFields(log.Fields{
			"contract": contract,
			"tokenId":  tokenId,
			"from":     from,
			"amount":   amount.String(),
		}).Warn("multi-unit transfer exceeds balance")
		return xerrors.Errorf("insufficient units of %s/%s held by %s: %w", contract, tokenId, from, domain.ErrTransferFailed)
	}
	im.setHolding(contract, tokenId, from, new(big.Int).Sub(held, amount))
	toHeld := im.holdings[holdingKey(contract, tokenId, to)]
	if toHeld == nil {
		toHeld = big.NewInt(0)
	}
	im.setHolding(contract, tokenId, to, new(big.Int).Add(toHeld, amount))
	return nil
}

func (im *nftLedgerImpl) MintSingle(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, owner domain.Address) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if _, exists := im.owners[positionKey(contract, tokenId)]; exists {
		return xerrors.Errorf("token %s/%s already minted: %w", contract, tokenId, domain.ErrTransferFailed)
	}
	im.setOwner(contract, tokenId, owner)
	return nil
}

func (im *nftLedgerImpl) MintMulti(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId, owner domain.Address, amount *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return xerrors.Errorf("non-positive amount: %w", domain.ErrTransferFailed)
	}
	held := im.holdings[holdingKey(contract, tokenId, owner)]
	if held == nil {
		held = big.NewInt(0)
	}
	im.setHolding(contract, tokenId, owner, new(big.Int).Add(held, amount))
	return nil
}

type fundLedgerImpl struct {
	mu sync.Mutex
	j  journal

	balances map[string]*big.Int
}

// NewFundLedger returns an in-memory currency ledger. Native balances live
// under domain.NativeToken.
func NewFundLedger() asset.FundLedger {
	return &fundLedgerImpl{
		balances: map[string]*big.Int{},
	}
}

func (im *fundLedgerImpl) Checkpoint() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.j.checkpoint()
}

func (im *fundLedgerImpl) Revert(checkpoint int) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.j.revert(checkpoint)
}

func (im *fundLedgerImpl) BalanceOf(c ctx.Ctx, token, owner domain.Address) (*big.Int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if bal, ok := im.balances[balanceKey(token, owner)]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (im *fundLedgerImpl) setBalance(token, owner domain.Address, bal *big.Int) {
	key := balanceKey(token, owner)
	prev, existed := im.balances[key]
	im.balances[key] = bal
	im.j.record(func() {
		if existed {
			im.balances[key] = prev
		} else {
			delete(im.balances, key)
		}
	})
}

func (im *fundLedgerImpl) move(token, from, to domain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return xerrors.Errorf("negative amount: %w", domain.ErrTransferFailed)
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal := im.balances[balanceKey(token, from)]
	if bal == nil || bal.Cmp(amount) < 0 {
		return xerrors.Errorf("insufficient %s balance of %s: %w", token, from, domain.ErrTransferFailed)
	}
	im.setBalance(token, from, new(big.Int).Sub(bal, amount))
	toBal := im.balances[balanceKey(token, to)]
	if toBal == nil {
		toBal = big.NewInt(0)
	}
	im.setBalance(token, to, new(big.Int).Add(toBal, amount))
	return nil
}

func (im *fundLedgerImpl) Transfer(c ctx.Ctx, token domain.Address, from, to domain.Address, amount *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.move(token, from, to, amount)
}

func (im *fundLedgerImpl) Deposit(c ctx.Ctx, token, owner domain.Address, amount *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if err := im.burn(domain.NativeToken, owner, amount); err != nil {
		return err
	}
	im.credit(token, owner, amount)
	return nil
}

func (im *fundLedgerImpl) Withdraw(c ctx.Ctx, token, owner domain.Address, amount *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if err := im.burn(token, owner, amount); err != nil {
		return err
	}
	im.credit(domain.NativeToken, owner, amount)
	return nil
}

func (im *fundLedgerImpl) burn(token, owner domain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return xerrors.Errorf("negative amount: %w", domain.ErrTransferFailed)
	}
	bal := im.balances[balanceKey(token, owner)]
	if bal == nil || bal.Cmp(amount) < 0 {
		return xerrors.Errorf("insufficient %s balance of %s: %w", token, owner, domain.ErrTransferFailed)
	}
	im.setBalance(token, owner, new(big.Int).Sub(bal, amount))
	return nil
}

func (im *fundLedgerImpl) credit(token, owner domain.Address, amount *big.Int) {
	bal := im.balances[balanceKey(token, owner)]
	if bal == nil {
		bal = big.NewInt(0)
	}
	im.setBalance(token, owner, new(big.Int).Add(bal, amount))
}

func (im *fundLedgerImpl) Mint(c ctx.Ctx, token, owner domain.Address, amount *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return xerrors.Errorf("negative amount: %w", domain.ErrTransferFailed)
	}
	im.credit(token, owner, amount)
	return nil
}
