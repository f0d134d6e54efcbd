package usecase

import (
	"math/big"
	"time"

	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/log"
	"github.com/x-xyz/goexchange/base/metrics"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/asset"
	"github.com/x-xyz/goexchange/domain/exchange"
	"github.com/x-xyz/goexchange/domain/order"
	"github.com/x-xyz/goexchange/domain/swap"
	"golang.org/x/xerrors"
)

type ExchangeUseCaseCfg struct {
	ChainId domain.ChainId
	// EngineAddress is the verifying-contract identity; it also serves as
	// the in-call escrow account
	EngineAddress domain.Address
	WrappedToken  domain.Address

	StateRepo   exchange.StateRepo
	NFTLedger   asset.NFTLedger
	FundLedger  asset.FundLedger
	SwapAdapter swap.Adapter

	// Now is overridable for tests; defaults to time.Now
	Now func() time.Time
}

type impl struct {
	chainId     domain.ChainId
	engine      domain.Address
	wrapped     domain.Address
	stateRepo   exchange.StateRepo
	nftLedger   asset.NFTLedger
	fundLedger  asset.FundLedger
	swapAdapter swap.Adapter
	now         func() time.Time
	met         metrics.Service
}

func New(cfg *ExchangeUseCaseCfg) exchange.UseCase {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &impl{
		chainId:     cfg.ChainId,
		engine:      cfg.EngineAddress.ToLower(),
		wrapped:     cfg.WrappedToken.ToLower(),
		stateRepo:   cfg.StateRepo,
		nftLedger:   cfg.NFTLedger,
		fundLedger:  cfg.FundLedger,
		swapAdapter: cfg.SwapAdapter,
		now:         now,
		met:         metrics.New("exchange"),
	}
}

// parsedFill carries a request validated through the read-only steps of the
// fill state machine; nothing has been mutated yet when it exists
type parsedFill struct {
	order     *order.Order
	units     *big.Int
	quantity  *big.Int
	price     *big.Int
	fees      []*big.Int
	total     *big.Int
	tokenId   domain.TokenId
	hash      domain.OrderHash
	remaining *big.Int
}

// scaled computes floor(x * units / quantity). Scaling is applied to the
// price and to each fee independently so rounding drift never accumulates
// across fees, and a full-quantity fill is an exact identity.
func scaled(x, units, quantity *big.Int) *big.Int {
	n := new(big.Int).Mul(x, units)
	return n.Div(n, quantity)
}

// validateFill runs steps 1-8 of the fill state machine: everything that can
// reject a fill before any balance is touched
func (im *impl) validateFill(c bCtx.Ctx, want order.Direction, req *exchange.FillRequest, taker domain.Address) (*parsedFill, error) {
	o := &req.Order

	// 1. the calling operation accepts exactly one order direction
	if o.Direction != want {
		return nil, xerrors.Errorf("operation wants direction %d, order has %d: %w", want, o.Direction, domain.ErrMalformedOrder)
	}
	if o.ChainId != im.chainId {
		return nil, xerrors.Errorf("order chain %d, engine chain %d: %w", o.ChainId, im.chainId, domain.ErrInvalidChainId)
	}

	// 2. structural invariants, including the direction-mandated currency
	if err := o.Validate(im.wrapped, im.engine); err != nil {
		return nil, err
	}

	// 3. signature over the canonical hash
	hash, err := o.Hash(im.engine)
	if err != nil {
		return nil, err
	}
	ok, err := o.VerifySignature(&req.Signature, im.engine)
	if err != nil || !ok {
		return nil, xerrors.Errorf("order %s: %w", hash, domain.ErrInvalidSignature)
	}

	// 4. expiry and unfillable states
	expired, err := o.Expired(im.now())
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, xerrors.Errorf("order %s: %w", hash, domain.ErrOrderExpired)
	}
	cancelled, err := im.stateRepo.IsCancelled(c, o.Maker, o.Nonce)
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, xerrors.Errorf("order %s cancelled: %w", hash, domain.ErrOrderUnfillable)
	}
	quantity, err := o.QuantityBig()
	if err != nil {
		return nil, err
	}
	remaining, err := im.stateRepo.RemainingUnits(c, hash, quantity)
	if err != nil {
		return nil, err
	}
	if remaining.Sign() == 0 {
		return nil, xerrors.Errorf("order %s exhausted: %w", hash, domain.ErrOrderUnfillable)
	}

	// 5. reserved counterparty
	if !o.TakerIsWildcard() && !o.Taker.Equals(taker) {
		return nil, xerrors.Errorf("order %s reserved for %s: %w", hash, o.Taker, domain.ErrTakerMismatch)
	}

	// 6. fill units within the remaining window
	nums, err := domain.ToBigInt([]string{req.FillUnits})
	if err != nil {
		return nil, err
	}
	units := nums[0]
	if units.Sign() <= 0 || units.Cmp(remaining) > 0 {
		return nil, xerrors.Errorf("fill %s of %s remaining: %w", units, remaining, domain.ErrQuantityExceeded)
	}

	// 7. concrete token id, proven when an id set is in use
	tokenId := req.TokenId
	if !o.UsesAllowlist() {
		if tokenId == "" {
			tokenId = o.TokenId
		}
	}
	if !o.ValidateTokenId(tokenId, req.Proof) {
		return nil, xerrors.Errorf("token %s against order %s: %w", tokenId, hash, domain.ErrInvalidProof)
	}

	// 8. proportional amounts
	paymentAmount, err := o.PaymentAmountBig()
	if err != nil {
		return nil, err
	}
	price := scaled(paymentAmount, units, quantity)
	total := new(big.Int).Set(price)
	fees := make([]*big.Int, len(o.Fees))
	for i, fee := range o.Fees {
		feeNums, err := domain.ToBigInt([]string{fee.Amount})
		if err != nil {
			return nil, err
		}
		fees[i] = scaled(feeNums[0], units, quantity)
		total.Add(total, fees[i])
	}

	return &parsedFill{
		order:     o,
		units:     units,
		quantity:  quantity,
		price:     price,
		fees:      fees,
		total:     total,
		tokenId:   tokenId,
		hash:      hash,
		remaining: remaining,
	}, nil
}

// transferNFT moves pf.units of the order's NFT with the primitive matching
// its unit model
func (im *impl) transferNFT(c bCtx.Ctx, pf *parsedFill, from, to domain.Address) error {
	if pf.order.UnitModel == order.UnitModelSingle {
		return im.nftLedger.TransferSingle(c, pf.order.AssetContract, pf.tokenId, from, to)
	}
	return im.nftLedger.TransferMulti(c, pf.order.AssetContract, pf.tokenId, from, to, pf.units)
}

func (im *impl) result(pf *parsedFill, taker domain.Address) *exchange.FillResult {
	// the record carries the order's nominal terms plus the actual units
	// filled, never the scaled amount
	return &exchange.FillResult{
		Direction:     pf.order.Direction,
		Maker:         pf.order.Maker,
		Taker:         taker,
		Nonce:         pf.order.Nonce,
		PaymentToken:  pf.order.PaymentToken,
		PaymentAmount: pf.order.PaymentAmount,
		AssetContract: pf.order.AssetContract,
		TokenId:       pf.tokenId,
		FillUnits:     pf.units.String(),
		OrderHash:     pf.hash,
	}
}

type checkpoints struct {
	state, nft, fund int
}

func (im *impl) checkpoint() checkpoints {
	return checkpoints{
		state: im.stateRepo.Checkpoint(),
		nft:   im.nftLedger.Checkpoint(),
		fund:  im.fundLedger.Checkpoint(),
	}
}

func (im *impl) revert(cp checkpoints) {
	im.fundLedger.Revert(cp.fund)
	im.nftLedger.Revert(cp.nft)
	im.stateRepo.Revert(cp.state)
}

// escrowPayment moves the taker's direct native contribution plus every
// assembled leg's output into the engine account, returning the total
// amount now held for the fill
func (im *impl) escrowPayment(c bCtx.Ctx, taker domain.Address, value *big.Int, legs []swap.Leg, required domain.Address) (*big.Int, error) {
	assembled := big.NewInt(0)
	if value != nil && value.Sign() > 0 {
		if err := im.fundLedger.Transfer(c, domain.NativeToken, taker, im.engine, value); err != nil {
			return nil, err
		}
		assembled.Add(assembled, value)
	}
	for i := range legs {
		leg := &legs[i]
		nums, err := domain.ToBigInt([]string{leg.SourceCeiling, leg.Output})
		if err != nil {
			return nil, err
		}
		ceiling, output := nums[0], nums[1]
		if len(leg.Path) == 0 {
			return nil, xerrors.Errorf("empty swap path: %w", domain.ErrBadParamInput)
		}
		if len(leg.Path) == 1 && leg.Path[0].Equals(required) {
			// pass-through leg: the payer holds the required currency
			// directly, no conversion
			if err := im.fundLedger.Transfer(c, required, taker, im.engine, output); err != nil {
				return nil, err
			}
		} else {
			if !leg.Path[len(leg.Path)-1].Equals(required) {
				return nil, xerrors.Errorf("swap path does not end in payment currency: %w", domain.ErrBadParamInput)
			}
			if im.swapAdapter == nil {
				return nil, xerrors.Errorf("no swap adapter configured: %w", domain.ErrBadParamInput)
			}
			if _, err := im.swapAdapter.SwapExactOutput(c, &swap.ExactOutputRequest{
				Path:           leg.Path,
				SourceCeiling:  ceiling,
				RequiredOutput: output,
				Payer:          taker,
				Recipient:      im.engine,
			}); err != nil {
				c.WithFields(log.Fields{"err": err}).Error("failed to swapAdapter.SwapExactOutput")
				return nil, xerrors.Errorf("swap leg: %v: %w", err, domain.ErrInsufficientPayment)
			}
		}
		assembled.Add(assembled, output)
	}
	return assembled, nil
}

// settleSellOrder executes the mutating half of filling a sell order. The
// payment currency (native) must already sit in the engine escrow; `budget`
// is how much of it this fill may consume. Returns the amount consumed.
func (im *impl) settleSellOrder(c bCtx.Ctx, pf *parsedFill, taker domain.Address, budget *big.Int) (*big.Int, error) {
	if budget.Cmp(pf.total) < 0 {
		return nil, xerrors.Errorf("need %s, provided %s: %w", pf.total, budget, domain.ErrInsufficientPayment)
	}

	// NFT from maker to taker
	if err := im.transferNFT(c, pf, pf.order.Maker, taker); err != nil {
		return nil, err
	}

	// price to maker, then each fee in declared order
	if err := im.fundLedger.Transfer(c, domain.NativeToken, im.engine, pf.order.Maker, pf.price); err != nil {
		return nil, err
	}
	for i, fee := range pf.order.Fees {
		if err := im.fundLedger.Transfer(c, domain.NativeToken, im.engine, fee.Recipient, pf.fees[i]); err != nil {
			return nil, err
		}
	}

	if err := im.stateRepo.Consume(c, pf.hash, pf.units, pf.quantity); err != nil {
		return nil, err
	}
	return pf.total, nil
}

// settleBuyOrder executes the mutating half of filling a buy order: the
// maker's wrapped funds pay the recipient, with an optional unwrap to native
// on the way out. `nftFrom` already holds the units (the taker, or the
// engine on the push-based path).
func (im *impl) settleBuyOrder(c bCtx.Ctx, pf *parsedFill, recipient, nftFrom domain.Address, unwrap bool) error {
	// NFT to maker
	if err := im.transferNFT(c, pf, nftFrom, pf.order.Maker); err != nil {
		return err
	}

	if unwrap {
		// convert the maker's wrapped funds to native in escrow, then pay
		// the final recipients in native currency
		if err := im.fundLedger.Transfer(c, im.wrapped, pf.order.Maker, im.engine, pf.total); err != nil {
			return err
		}
		if err := im.fundLedger.Withdraw(c, im.wrapped, im.engine, pf.total); err != nil {
			return err
		}
		if err := im.fundLedger.Transfer(c, domain.NativeToken, im.engine, recipient, pf.price); err != nil {
			return err
		}
		for i, fee := range pf.order.Fees {
			if err := im.fundLedger.Transfer(c, domain.NativeToken, im.engine, fee.Recipient, pf.fees[i]); err != nil {
				return err
			}
		}
	} else {
		if err := im.fundLedger.Transfer(c, im.wrapped, pf.order.Maker, recipient, pf.price); err != nil {
			return err
		}
		for i, fee := range pf.order.Fees {
			if err := im.fundLedger.Transfer(c, im.wrapped, pf.order.Maker, fee.Recipient, pf.fees[i]); err != nil {
				return err
			}
		}
	}

	return im.stateRepo.Consume(c, pf.hash, pf.units, pf.quantity)
}

func (im *impl) BuyNFT(c bCtx.Ctx, taker domain.Address, valueProvided *big.Int, req *exchange.FillRequest) (*exchange.FillResult, error) {
	defer im.met.BumpTime("fill.time", "op", "buy").End()

	pf, err := im.validateFill(c, order.DirectionSellNFT, req, taker)
	if err != nil {
		im.met.BumpSum("fill.err", 1, "op", "buy")
		return nil, err
	}

	cp := im.checkpoint()
	assembled, err := im.escrowPayment(c, taker, valueProvided, req.Legs, domain.NativeToken)
	if err != nil {
		im.revert(cp)
		im.met.BumpSum("fill.err", 1, "op", "buy")
		return nil, err
	}
	consumed, err := im.settleSellOrder(c, pf, taker, assembled)
	if err != nil {
		im.revert(cp)
		im.met.BumpSum("fill.err", 1, "op", "buy")
		return nil, err
	}
	// refund whatever the taker escrowed beyond the scaled price and fees
	refund := new(big.Int).Sub(assembled, consumed)
	if refund.Sign() > 0 {
		if err := im.fundLedger.Transfer(c, domain.NativeToken, im.engine, taker, refund); err != nil {
			im.revert(cp)
			im.met.BumpSum("fill.err", 1, "op", "buy")
			return nil, err
		}
	}

	res := im.result(pf, taker)
	im.met.BumpSum("fill.count", 1, "op", "buy")
	c.WithFields(log.Fields{
		"orderHash": res.OrderHash,
		"maker":     res.Maker,
		"taker":     res.Taker,
		"units":     res.FillUnits,
	}).Info("order filled")
	return res, nil
}

func (im *impl) SellNFT(c bCtx.Ctx, taker domain.Address, req *exchange.FillRequest) (*exchange.FillResult, error) {
	defer im.met.BumpTime("fill.time", "op", "sell").End()

	pf, err := im.validateFill(c, order.DirectionBuyNFT, req, taker)
	if err != nil {
		im.met.BumpSum("fill.err", 1, "op", "sell")
		return nil, err
	}

	cp := im.checkpoint()
	if err := im.settleBuyOrder(c, pf, taker, taker, req.UnwrapNative); err != nil {
		im.revert(cp)
		im.met.BumpSum("fill.err", 1, "op", "sell")
		return nil, err
	}

	res := im.result(pf, taker)
	im.met.BumpSum("fill.count", 1, "op", "sell")
	c.WithFields(log.Fields{
		"orderHash": res.OrderHash,
		"maker":     res.Maker,
		"taker":     res.Taker,
		"units":     res.FillUnits,
	}).Info("order filled")
	return res, nil
}

func (im *impl) FillMany(c bCtx.Ctx, taker domain.Address, valueProvided *big.Int, orders []order.Order, sigs []order.Signature, fillUnits []string, revertIfIncomplete bool) ([]*exchange.FillResult, error) {
	defer im.met.BumpTime("fill.time", "op", "batch").End()
	im.met.BumpHistogram("batch.size", float64(len(orders)))

	if len(orders) != len(sigs) || len(orders) != len(fillUnits) {
		return nil, xerrors.Errorf("%d orders, %d signatures, %d fill units: %w",
			len(orders), len(sigs), len(fillUnits), domain.ErrArrayLengthMismatch)
	}
	if valueProvided == nil {
		valueProvided = big.NewInt(0)
	}

	outer := im.checkpoint()
	if valueProvided.Sign() > 0 {
		if err := im.fundLedger.Transfer(c, domain.NativeToken, taker, im.engine, valueProvided); err != nil {
			return nil, err
		}
	}

	results := []*exchange.FillResult{}
	spent := big.NewInt(0)
	for i := range orders {
		req := &exchange.FillRequest{
			Order:     orders[i],
			Signature: sigs[i],
			FillUnits: fillUnits[i],
			TokenId:   orders[i].TokenId,
		}
		inner := im.checkpoint()
		budget := new(big.Int).Sub(valueProvided, spent)

		pf, err := im.validateFill(c, order.DirectionSellNFT, req, taker)
		var consumed *big.Int
		if err == nil {
			consumed, err = im.settleSellOrder(c, pf, taker, budget)
		}
		if err != nil {
			im.revert(inner)
			if revertIfIncomplete {
				im.revert(outer)
				im.met.BumpSum("fill.err", 1, "op", "batch")
				return nil, xerrors.Errorf("order %d: %w", i, err)
			}
			// best-effort mode swallows this order's failure entirely
			c.WithFields(log.Fields{
				"err": err,
				"idx": i,
			}).Warn("skipping unfillable order in best-effort batch")
			continue
		}
		spent.Add(spent, consumed)
		results = append(results, im.result(pf, taker))
	}

	// refund whatever the batch did not consume
	refund := new(big.Int).Sub(valueProvided, spent)
	if refund.Sign() > 0 {
		if err := im.fundLedger.Transfer(c, domain.NativeToken, im.engine, taker, refund); err != nil {
			im.revert(outer)
			return nil, err
		}
	}

	im.met.BumpSum("fill.count", float64(len(results)), "op", "batch")
	return results, nil
}

func (im *impl) OnNFTReceived(c bCtx.Ctx, inbound *exchange.InboundNFT) (*exchange.FillResult, error) {
	defer im.met.BumpTime("fill.time", "op", "received").End()

	payload := &inbound.Payload
	o := &payload.Order

	// the pushed asset must be what the embedded buy order expects
	if !o.AssetContract.Equals(inbound.AssetContract) {
		im.met.BumpSum("fill.err", 1, "op", "received")
		return nil, xerrors.Errorf("received %s, order wants %s: %w", inbound.AssetContract, o.AssetContract, domain.ErrMalformedOrder)
	}
	units := inbound.Amount
	if o.UnitModel == order.UnitModelSingle && units != "1" {
		im.met.BumpSum("fill.err", 1, "op", "received")
		return nil, xerrors.Errorf("received amount %s for a single-unit order: %w", units, domain.ErrMalformedOrder)
	}

	req := &exchange.FillRequest{
		Order:     *o,
		Signature: payload.Signature,
		FillUnits: units,
		TokenId:   inbound.TokenId,
		Proof:     payload.Proof,
	}
	pf, err := im.validateFill(c, order.DirectionBuyNFT, req, inbound.From)
	if err != nil {
		im.met.BumpSum("fill.err", 1, "op", "received")
		return nil, err
	}

	cp := im.checkpoint()
	// the inbound transfer lands in the engine first; a failed fill bounces
	// it back by reverting
	if err := im.transferNFT(c, pf, inbound.From, im.engine); err != nil {
		im.revert(cp)
		im.met.BumpSum("fill.err", 1, "op", "received")
		return nil, err
	}
	if err := im.settleBuyOrder(c, pf, inbound.From, im.engine, payload.UnwrapNative); err != nil {
		im.revert(cp)
		im.met.BumpSum("fill.err", 1, "op", "received")
		return nil, err
	}

	res := im.result(pf, inbound.From)
	im.met.BumpSum("fill.count", 1, "op", "received")
	c.WithFields(log.Fields{
		"orderHash": res.OrderHash,
		"maker":     res.Maker,
		"taker":     res.Taker,
		"units":     res.FillUnits,
	}).Info("order filled via received hook")
	return res, nil
}

func (im *impl) TransferMany(c bCtx.Ctx, caller domain.Address, items []asset.TransferItem, to domain.Address) error {
	return im.transferManyAndCancel(c, caller, items, to, nil)
}

func (im *impl) TransferManyAndCancel(c bCtx.Ctx, caller domain.Address, items []asset.TransferItem, to domain.Address, nonces []string) error {
	return im.transferManyAndCancel(c, caller, items, to, nonces)
}

// transferManyAndCancel is a plain all-or-nothing batch; there is no
// best-effort mode here
func (im *impl) transferManyAndCancel(c bCtx.Ctx, caller domain.Address, items []asset.TransferItem, to domain.Address, nonces []string) error {
	cp := im.checkpoint()
	for i := range items {
		item := &items[i]
		var err error
		if item.UnitModel == order.UnitModelSingle {
			err = im.nftLedger.TransferSingle(c, item.AssetContract, item.TokenId, caller, to)
		} else {
			var nums []*big.Int
			nums, err = domain.ToBigInt([]string{item.Amount})
			if err == nil {
				err = im.nftLedger.TransferMulti(c, item.AssetContract, item.TokenId, caller, to, nums[0])
			}
		}
		if err != nil {
			im.revert(cp)
			c.WithFields(log.Fields{
				"err": err,
				"idx": i,
			}).Error("failed to transfer item in batch")
			return err
		}
	}
	for _, nonce := range nonces {
		if err := im.stateRepo.Cancel(c, caller, nonce); err != nil {
			im.revert(cp)
			return err
		}
	}
	return nil
}

func (im *impl) CancelOrder(c bCtx.Ctx, maker domain.Address, nonce string) (*exchange.CancelResult, error) {
	if err := im.stateRepo.Cancel(c, maker, nonce); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"maker": maker,
			"nonce": nonce,
		}).Error("failed to stateRepo.Cancel")
		return nil, err
	}
	im.met.BumpSum("cancel.count", 1)
	c.WithFields(log.Fields{
		"maker": maker,
		"nonce": nonce,
	}).Info("order cancelled")
	return &exchange.CancelResult{Maker: maker.ToLower(), Nonce: nonce}, nil
}

func (im *impl) RemainingUnits(c bCtx.Ctx, o *order.Order) (*big.Int, error) {
	hash, err := o.Hash(im.engine)
	if err != nil {
		return nil, err
	}
	quantity, err := o.QuantityBig()
	if err != nil {
		return nil, err
	}
	return im.stateRepo.RemainingUnits(c, hash, quantity)
}
