package repository

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/exchange"
	"golang.org/x/xerrors"
)

func nonceKey(maker domain.Address, nonce string) string {
	return fmt.Sprintf("%s/%s", maker.ToLowerStr(), nonce)
}

type stateRepoImpl struct {
	mu sync.Mutex

	cancelled map[string]bool
	// remaining units per order hash; absence means never filled, i.e. the
	// full quantity is still available. A stored zero is a real, permanent
	// "exhausted" state, distinct from absence.
	remaining map[domain.OrderHash]*big.Int

	undos []func()
}

// NewStateRepo returns the in-memory cancellation and fill-record store
func NewStateRepo() exchange.StateRepo {
	return &stateRepoImpl{
		cancelled: map[string]bool{},
		remaining: map[domain.OrderHash]*big.Int{},
	}
}

func (im *stateRepoImpl) Checkpoint() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return len(im.undos)
}

func (im *stateRepoImpl) Revert(checkpoint int) {
	im.mu.Lock()
	defer im.mu.Unlock()
	for i := len(im.undos) - 1; i >= checkpoint; i-- {
		im.undos[i]()
	}
	im.undos = im.undos[:checkpoint]
}

func (im *stateRepoImpl) IsCancelled(c ctx.Ctx, maker domain.Address, nonce string) (bool, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.cancelled[nonceKey(maker, nonce)], nil
}

func (im *stateRepoImpl) Cancel(c ctx.Ctx, maker domain.Address, nonce string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := nonceKey(maker, nonce)
	if im.cancelled[key] {
		// already cancelled, stays cancelled
		return nil
	}
	im.cancelled[key] = true
	im.undos = append(im.undos, func() {
		delete(im.cancelled, key)
	})
	return nil
}

func (im *stateRepoImpl) RemainingUnits(c ctx.Ctx, hash domain.OrderHash, fullQuantity *big.Int) (*big.Int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if units, ok := im.remaining[hash.ToLower()]; ok {
		return new(big.Int).Set(units), nil
	}
	return new(big.Int).Set(fullQuantity), nil
}

func (im *stateRepoImpl) Consume(c ctx.Ctx, hash domain.OrderHash, units, fullQuantity *big.Int) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	key := hash.ToLower()
	prev, existed := im.remaining[key]
	avail := prev
	if !existed {
		avail = fullQuantity
	}
	if units.Cmp(avail) > 0 {
		return xerrors.Errorf("consume %s of %s remaining: %w", units, avail, domain.ErrQuantityExceeded)
	}
	im.remaining[key] = new(big.Int).Sub(avail, units)
	im.undos = append(im.undos, func() {
		if existed {
			im.remaining[key] = prev
		} else {
			delete(im.remaining, key)
		}
	})
	return nil
}
