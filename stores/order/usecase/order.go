package usecase

import (
	"time"

	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/log"
	"github.com/x-xyz/goexchange/base/ptr"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/exchange"
	"github.com/x-xyz/goexchange/domain/order"
	"golang.org/x/xerrors"
)

type OrderUseCaseCfg struct {
	ChainId       domain.ChainId
	EngineAddress domain.Address
	WrappedToken  domain.Address
	OrderRepo     order.Repo
	StateRepo     exchange.StateRepo

	Now func() time.Time
}

type impl struct {
	chainId   domain.ChainId
	engine    domain.Address
	wrapped   domain.Address
	orderRepo order.Repo
	stateRepo exchange.StateRepo
	now       func() time.Time
}

func New(cfg *OrderUseCaseCfg) order.UseCase {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &impl{
		chainId:   cfg.ChainId,
		engine:    cfg.EngineAddress.ToLower(),
		wrapped:   cfg.WrappedToken.ToLower(),
		orderRepo: cfg.OrderRepo,
		stateRepo: cfg.StateRepo,
		now:       now,
	}
}

// MakeOrder validates, hashes and stores a signed order into the order book
func (im *impl) MakeOrder(c bCtx.Ctx, o order.Order, sig order.Signature) (*order.Order, error) {
	o.LowerCase()

	if o.ChainId != im.chainId {
		return nil, xerrors.Errorf("order chain %d, engine chain %d: %w", o.ChainId, im.chainId, domain.ErrInvalidChainId)
	}
	if err := o.Validate(im.wrapped, im.engine); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"maker": o.Maker,
		}).Warn("rejecting malformed order")
		return nil, err
	}

	expired, err := o.Expired(im.now())
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, xerrors.Errorf("expiry in the past: %w", domain.ErrOrderExpired)
	}

	hash, err := o.Hash(im.engine)
	if err != nil {
		c.WithFields(log.Fields{"err": err}).Error("failed to order.Hash")
		return nil, err
	}
	ok, err := o.VerifySignature(&sig, im.engine)
	if err != nil || !ok {
		return nil, xerrors.Errorf("order %s: %w", hash, domain.ErrInvalidSignature)
	}
	o.OrderHash = hash

	cancelled, err := im.stateRepo.IsCancelled(c, o.Maker, o.Nonce)
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, xerrors.Errorf("nonce %s of %s already cancelled: %w", o.Nonce, o.Maker, domain.ErrOrderUnfillable)
	}

	if err := im.orderRepo.Upsert(c, &o); err != nil {
		c.WithFields(log.Fields{
			"err":       err,
			"orderHash": o.OrderHash,
		}).Error("failed to orderRepo.Upsert")
		return nil, err
	}
	return &o, nil
}

func (im *impl) GetOrder(c bCtx.Ctx, id order.Id) (*order.Order, error) {
	return im.orderRepo.FindOne(c, id)
}

func (im *impl) FindAll(c bCtx.Ctx, opts ...order.FindAllOptionsFunc) ([]*order.Order, error) {
	return im.orderRepo.FindAll(c, opts...)
}

// CancelByNonce marks the nonce cancelled in the fill state and flags every
// stored order carrying it
func (im *impl) CancelByNonce(c bCtx.Ctx, chainId domain.ChainId, maker domain.Address, nonce string) error {
	if err := im.stateRepo.Cancel(c, maker, nonce); err != nil {
		return err
	}

	orders, err := im.orderRepo.FindAll(c,
		order.WithChainId(chainId),
		order.WithMaker(maker),
		order.WithNonce(nonce),
	)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if err := im.orderRepo.Update(c, o.ToId(), order.Patchable{IsCancelled: ptr.Bool(true)}); err != nil {
			c.WithFields(log.Fields{
				"err":       err,
				"orderHash": o.OrderHash,
			}).Error("failed to orderRepo.Update")
			return err
		}
	}
	return nil
}
