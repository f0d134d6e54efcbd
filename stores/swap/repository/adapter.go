package repository

import (
	"fmt"
	"math/big"
	"sync"

	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/log"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/asset"
	"github.com/x-xyz/goexchange/domain/swap"
	"golang.org/x/xerrors"
)

func pairKey(src, dst domain.Address) string {
	return fmt.Sprintf("%s/%s", src.ToLowerStr(), dst.ToLowerStr())
}

type RateVenueCfg struct {
	// VenueAddress receives the source currency of every swap
	VenueAddress domain.Address
	FundLedger   asset.FundLedger
}

// RateVenue is a fixed-rate swap venue. Output currency is minted to the
// recipient and the source currency parks at the venue address, which is how
// an external venue looks from the fund ledger's point of view.
type RateVenue struct {
	mu    sync.RWMutex
	venue domain.Address
	funds asset.FundLedger
	rates map[string]*big.Rat
}

func NewRateVenue(cfg *RateVenueCfg) *RateVenue {
	return &RateVenue{
		venue: cfg.VenueAddress.ToLower(),
		funds: cfg.FundLedger,
		rates: map[string]*big.Rat{},
	}
}

var _ swap.Adapter = (*RateVenue)(nil)

// SetRate fixes the dst-per-src exchange rate of a pair
func (im *RateVenue) SetRate(src, dst domain.Address, rate *big.Rat) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.rates[pairKey(src, dst)] = rate
}

// pathRate composes the rate across every hop of the path
func (im *RateVenue) pathRate(path []domain.Address) (*big.Rat, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	if len(path) < 2 {
		return nil, xerrors.Errorf("path needs at least two currencies")
	}
	rate := big.NewRat(1, 1)
	for i := 0; i+1 < len(path); i++ {
		hop, ok := im.rates[pairKey(path[i], path[i+1])]
		if !ok {
			return nil, xerrors.Errorf("no rate for %s -> %s", path[i], path[i+1])
		}
		rate.Mul(rate, hop)
	}
	return rate, nil
}

func (im *RateVenue) SwapExactOutput(c bCtx.Ctx, req *swap.ExactOutputRequest) (*big.Int, error) {
	rate, err := im.pathRate(req.Path)
	if err != nil {
		return nil, err
	}

	// source = ceil(output / rate)
	source := new(big.Int).Mul(req.RequiredOutput, rate.Denom())
	source.Add(source, new(big.Int).Sub(rate.Num(), big.NewInt(1)))
	source.Div(source, rate.Num())

	if req.SourceCeiling != nil && source.Cmp(req.SourceCeiling) > 0 {
		return nil, xerrors.Errorf("needs %s of %s, ceiling %s", source, req.Path[0], req.SourceCeiling)
	}
	if err := im.funds.Transfer(c, req.Path[0], req.Payer, im.venue, source); err != nil {
		return nil, err
	}
	if err := im.funds.Mint(c, req.Path[len(req.Path)-1], req.Recipient, req.RequiredOutput); err != nil {
		return nil, err
	}

	c.WithFields(log.Fields{
		"payer":  req.Payer,
		"spent":  source.String(),
		"output": req.RequiredOutput.String(),
	}).Debug("exact-output swap executed")
	return source, nil
}

func (im *RateVenue) SwapExactInput(c bCtx.Ctx, req *swap.ExactInputRequest) (*big.Int, error) {
	rate, err := im.pathRate(req.Path)
	if err != nil {
		return nil, err
	}

	// output = floor(input * rate)
	output := new(big.Int).Mul(req.ExactInput, rate.Num())
	output.Div(output, rate.Denom())

	if req.MinOutput != nil && output.Cmp(req.MinOutput) < 0 {
		return nil, xerrors.Errorf("output %s below minimum %s", output, req.MinOutput)
	}
	if err := im.funds.Transfer(c, req.Path[0], req.Payer, im.venue, req.ExactInput); err != nil {
		return nil, err
	}
	if err := im.funds.Mint(c, req.Path[len(req.Path)-1], req.Recipient, output); err != nil {
		return nil, err
	}
	return output, nil
}
