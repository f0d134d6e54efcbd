package usecase

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/asset"
	"github.com/x-xyz/goexchange/domain/exchange"
	"github.com/x-xyz/goexchange/domain/order"
	"github.com/x-xyz/goexchange/domain/swap"
	assetRepo "github.com/x-xyz/goexchange/stores/asset/repository"
	exchangeRepo "github.com/x-xyz/goexchange/stores/exchange/repository"
	swapRepo "github.com/x-xyz/goexchange/stores/swap/repository"
)

const (
	chainId = domain.ChainId(1)
	engine  = domain.Address("0x1a01ecd2263a9d5b5967667e508ea22db478bc4b")
	wrapped = domain.Address("0xb4fbf271143f4fbf7b91a5ded31805e42b2208d6")
	usdc    = domain.Address("0x07fe9ffd85b54a3a18467d3b5e91a55ecc52a268")
	venue   = domain.Address("0x54a769173d97432a48371b022709117c090298e3")

	nftContract  = domain.Address("0xdcf0de6b17785a143d006e1515a6afd123cde8ba")
	taker        = domain.Address("0xce4468e7ce84aceb74363f4ea64e5a038176f369")
	feeRecipient = domain.Address("0xdf8650b0ca1260f7a2f4fdff9082aede554f65ad")
)

var frozenNow = time.Unix(1700000000, 0)

func bi(n int64) *big.Int { return big.NewInt(n) }

type exchangeSuite struct {
	suite.Suite

	ctx   bCtx.Ctx
	nft   asset.NFTLedger
	funds asset.FundLedger
	state exchange.StateRepo
	venue *swapRepo.RateVenue

	makerKey *ecdsa.PrivateKey
	maker    domain.Address

	im exchange.UseCase
}

func TestExchangeSuite(t *testing.T) {
	suite.Run(t, new(exchangeSuite))
}

func (s *exchangeSuite) SetupTest() {
	s.ctx = bCtx.Background()
	s.nft = assetRepo.NewNFTLedger()
	s.funds = assetRepo.NewFundLedger()
	s.state = exchangeRepo.NewStateRepo()
	s.venue = swapRepo.NewRateVenue(&swapRepo.RateVenueCfg{
		VenueAddress: venue,
		FundLedger:   s.funds,
	})

	key, err := crypto.GenerateKey()
	s.Require().NoError(err)
	s.makerKey = key
	s.maker = domain.Address(crypto.PubkeyToAddress(key.PublicKey).Hex()).ToLower()

	s.im = New(&ExchangeUseCaseCfg{
		ChainId:       chainId,
		EngineAddress: engine,
		WrappedToken:  wrapped,
		StateRepo:     s.state,
		NFTLedger:     s.nft,
		FundLedger:    s.funds,
		SwapAdapter:   s.venue,
		Now:           func() time.Time { return frozenNow },
	})
}

func (s *exchangeSuite) sign(o *order.Order) order.Signature {
	digest, err := o.SigningDigest(engine)
	s.Require().NoError(err)
	sig, err := crypto.Sign(digest, s.makerKey)
	s.Require().NoError(err)
	return order.Signature{
		Scheme: order.SchemeEIP712,
		V:      int(sig[64]) + 27,
		R:      hexutil.Encode(sig[:32]),
		S:      hexutil.Encode(sig[32:64]),
	}
}

func (s *exchangeSuite) sellOrder(tokenId domain.TokenId, quantity, amount string) order.Order {
	unitModel := order.UnitModelMulti
	if quantity == "1" {
		unitModel = order.UnitModelSingle
	}
	return order.Order{
		ChainId:       chainId,
		Direction:     order.DirectionSellNFT,
		Maker:         s.maker,
		Expiry:        strconv.FormatInt(frozenNow.Add(time.Hour).Unix(), 10),
		Nonce:         "1",
		PaymentToken:  domain.NativeToken,
		PaymentAmount: amount,
		AssetContract: nftContract,
		TokenId:       tokenId,
		Quantity:      quantity,
		UnitModel:     unitModel,
	}
}

func (s *exchangeSuite) buyOrder(tokenId domain.TokenId, quantity, amount string) order.Order {
	o := s.sellOrder(tokenId, quantity, amount)
	o.Direction = order.DirectionBuyNFT
	o.PaymentToken = wrapped
	return o
}

func (s *exchangeSuite) nativeBalance(owner domain.Address) *big.Int {
	bal, err := s.funds.BalanceOf(s.ctx, domain.NativeToken, owner)
	s.Require().NoError(err)
	return bal
}

func (s *exchangeSuite) wrappedBalance(owner domain.Address) *big.Int {
	bal, err := s.funds.BalanceOf(s.ctx, wrapped, owner)
	s.Require().NoError(err)
	return bal
}

func (s *exchangeSuite) TestBuyNFTSingleWithFee() {
	req := s.Require()

	o := s.sellOrder("7", "1", "1000")
	o.Fees = []order.Fee{{Recipient: feeRecipient, Amount: "100"}}
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", s.maker))
	req.NoError(s.funds.Mint(s.ctx, domain.NativeToken, taker, bi(2000)))

	res, err := s.im.BuyNFT(s.ctx, taker, bi(1500), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.NoError(err)

	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "7")
	req.NoError(err)
	req.Equal(taker, owner)

	req.Equal(bi(1000), s.nativeBalance(s.maker))
	req.Equal(bi(100), s.nativeBalance(feeRecipient))
	// excess over price+fee refunded
	req.Equal(bi(900), s.nativeBalance(taker))
	req.Equal(bi(0), s.nativeBalance(engine))

	// the record carries nominal terms, not the scaled amount
	req.Equal("1000", res.PaymentAmount)
	req.Equal("1", res.FillUnits)
	req.Equal(s.maker, res.Maker)
	req.Equal(taker, res.Taker)

	remaining, err := s.im.RemainingUnits(s.ctx, &o)
	req.NoError(err)
	req.Equal(bi(0), remaining)
}

func (s *exchangeSuite) TestBuyNFTPartialFillProportional() {
	req := s.Require()

	o := s.sellOrder("9", "20", "2000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintMulti(s.ctx, nftContract, "9", s.maker, bi(20)))
	req.NoError(s.funds.Mint(s.ctx, domain.NativeToken, taker, bi(5000)))

	res, err := s.im.BuyNFT(s.ctx, taker, bi(200), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "2",
	})
	req.NoError(err)
	req.Equal("2000", res.PaymentAmount)
	req.Equal("2", res.FillUnits)

	// 2 of 20 units at nominal 2000 costs exactly 200
	req.Equal(bi(200), s.nativeBalance(s.maker))
	bal, err := s.nft.BalanceOf(s.ctx, nftContract, "9", taker)
	req.NoError(err)
	req.Equal(bi(2), bal)

	remaining, err := s.im.RemainingUnits(s.ctx, &o)
	req.NoError(err)
	req.Equal(bi(18), remaining)

	// filling the rest conserves the nominal total
	_, err = s.im.BuyNFT(s.ctx, taker, bi(1800), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "18",
	})
	req.NoError(err)
	req.Equal(bi(2000), s.nativeBalance(s.maker))

	// exhausted orders are unfillable
	_, err = s.im.BuyNFT(s.ctx, taker, bi(100), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.True(errors.Is(err, domain.ErrOrderUnfillable))
}

func (s *exchangeSuite) TestBuyNFTInsufficientValueLeavesNoTrace() {
	req := s.Require()

	o := s.sellOrder("9", "20", "2000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintMulti(s.ctx, nftContract, "9", s.maker, bi(20)))
	req.NoError(s.funds.Mint(s.ctx, domain.NativeToken, taker, bi(199)))

	_, err := s.im.BuyNFT(s.ctx, taker, bi(199), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "2",
	})
	req.True(errors.Is(err, domain.ErrInsufficientPayment))

	// the escrow was rolled back along with everything else
	req.Equal(bi(199), s.nativeBalance(taker))
	req.Equal(bi(0), s.nativeBalance(s.maker))
	remaining, err := s.im.RemainingUnits(s.ctx, &o)
	req.NoError(err)
	req.Equal(bi(20), remaining)
}

func (s *exchangeSuite) TestBuyNFTQuantityExceeded() {
	req := s.Require()

	o := s.sellOrder("9", "20", "2000")
	sig := s.sign(&o)

	_, err := s.im.BuyNFT(s.ctx, taker, bi(5000), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "21",
	})
	req.True(errors.Is(err, domain.ErrQuantityExceeded))

	_, err = s.im.BuyNFT(s.ctx, taker, bi(5000), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "0",
	})
	req.True(errors.Is(err, domain.ErrQuantityExceeded))
}

func (s *exchangeSuite) TestBuyNFTReservedTaker() {
	req := s.Require()

	o := s.sellOrder("7", "1", "1000")
	o.Taker = feeRecipient
	sig := s.sign(&o)

	_, err := s.im.BuyNFT(s.ctx, taker, bi(1000), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.True(errors.Is(err, domain.ErrTakerMismatch))
}

func (s *exchangeSuite) TestBuyNFTExpired() {
	req := s.Require()

	o := s.sellOrder("7", "1", "1000")
	o.Expiry = strconv.FormatInt(frozenNow.Add(-time.Minute).Unix(), 10)
	sig := s.sign(&o)

	_, err := s.im.BuyNFT(s.ctx, taker, bi(1000), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.True(errors.Is(err, domain.ErrOrderExpired))
}

func (s *exchangeSuite) TestBuyNFTWrongDirection() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	sig := s.sign(&o)

	_, err := s.im.BuyNFT(s.ctx, taker, bi(1000), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.True(errors.Is(err, domain.ErrMalformedOrder))
}

func (s *exchangeSuite) TestBuyNFTTamperedSignature() {
	req := s.Require()

	o := s.sellOrder("7", "1", "1000")
	sig := s.sign(&o)
	o.PaymentAmount = "1"

	_, err := s.im.BuyNFT(s.ctx, taker, bi(1000), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.True(errors.Is(err, domain.ErrInvalidSignature))
}

func (s *exchangeSuite) TestBuyNFTWithSwapLeg() {
	req := s.Require()

	o := s.sellOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", s.maker))
	req.NoError(s.funds.Mint(s.ctx, usdc, taker, bi(10000)))
	// 1 native per 2 usdc
	s.venue.SetRate(usdc, domain.NativeToken, big.NewRat(1, 2))

	_, err := s.im.BuyNFT(s.ctx, taker, nil, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
		Legs: []swap.Leg{{
			Path:          []domain.Address{usdc, domain.NativeToken},
			SourceCeiling: "2000",
			Output:        "1000",
		}},
	})
	req.NoError(err)

	usdcBal, err := s.funds.BalanceOf(s.ctx, usdc, taker)
	req.NoError(err)
	req.Equal(bi(8000), usdcBal)
	req.Equal(bi(1000), s.nativeBalance(s.maker))

	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "7")
	req.NoError(err)
	req.Equal(taker, owner)
}

func (s *exchangeSuite) TestBuyNFTSwapLegShortfallReverts() {
	req := s.Require()

	o := s.sellOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", s.maker))
	req.NoError(s.funds.Mint(s.ctx, usdc, taker, bi(10000)))
	s.venue.SetRate(usdc, domain.NativeToken, big.NewRat(1, 2))

	// the leg only assembles half the price
	_, err := s.im.BuyNFT(s.ctx, taker, nil, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
		Legs: []swap.Leg{{
			Path:          []domain.Address{usdc, domain.NativeToken},
			SourceCeiling: "1000",
			Output:        "500",
		}},
	})
	req.True(errors.Is(err, domain.ErrInsufficientPayment))

	// the executed swap was rolled back too
	usdcBal, err := s.funds.BalanceOf(s.ctx, usdc, taker)
	req.NoError(err)
	req.Equal(bi(10000), usdcBal)
}

func (s *exchangeSuite) TestSellNFT() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	o.Fees = []order.Fee{{Recipient: feeRecipient, Amount: "50"}}
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", taker))
	req.NoError(s.funds.Mint(s.ctx, wrapped, s.maker, bi(2000)))

	res, err := s.im.SellNFT(s.ctx, taker, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.NoError(err)
	req.Equal("1", res.FillUnits)

	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "7")
	req.NoError(err)
	req.Equal(s.maker, owner)

	req.Equal(bi(1000), s.wrappedBalance(taker))
	req.Equal(bi(50), s.wrappedBalance(feeRecipient))
	req.Equal(bi(950), s.wrappedBalance(s.maker))
}

func (s *exchangeSuite) TestSellNFTUnwrapNative() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", taker))
	req.NoError(s.funds.Mint(s.ctx, wrapped, s.maker, bi(1000)))

	_, err := s.im.SellNFT(s.ctx, taker, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1", UnwrapNative: true,
	})
	req.NoError(err)

	// the taker gets native currency, not wrapped
	req.Equal(bi(1000), s.nativeBalance(taker))
	req.Equal(bi(0), s.wrappedBalance(taker))
	req.Equal(bi(0), s.wrappedBalance(s.maker))
}

func (s *exchangeSuite) TestSellNFTAllowlist() {
	req := s.Require()

	ids := []domain.TokenId{"3", "5", "9"}
	root, err := order.ComputeAllowlistRoot(ids)
	req.NoError(err)

	o := s.buyOrder("0", "1", "1000")
	o.AllowlistRoot = root
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "5", taker))
	req.NoError(s.funds.Mint(s.ctx, wrapped, s.maker, bi(1000)))

	proof, err := order.ComputeAllowlistProof(ids, 1)
	req.NoError(err)

	// an id outside the committed set is refused
	badProof := proof
	_, err = s.im.SellNFT(s.ctx, taker, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1", TokenId: "7", Proof: badProof,
	})
	req.True(errors.Is(err, domain.ErrInvalidProof))

	_, err = s.im.SellNFT(s.ctx, taker, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1", TokenId: "5", Proof: proof,
	})
	req.NoError(err)

	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "5")
	req.NoError(err)
	req.Equal(s.maker, owner)
}

func (s *exchangeSuite) TestSellNFTAnyTokenId() {
	req := s.Require()

	o := s.buyOrder("0", "1", "1000")
	o.AllowlistRoot = domain.AnyTokenIdRoot
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "12345", taker))
	req.NoError(s.funds.Mint(s.ctx, wrapped, s.maker, bi(1000)))

	// any id of the collection satisfies the sentinel root, no proof needed
	_, err := s.im.SellNFT(s.ctx, taker, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1", TokenId: "12345",
	})
	req.NoError(err)
}

func (s *exchangeSuite) TestSellNFTExplicitIdMismatch() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "8", taker))
	req.NoError(s.funds.Mint(s.ctx, wrapped, s.maker, bi(1000)))

	_, err := s.im.SellNFT(s.ctx, taker, &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1", TokenId: "8",
	})
	req.True(errors.Is(err, domain.ErrInvalidProof))
}

func (s *exchangeSuite) TestCancelOrder() {
	req := s.Require()

	o := s.sellOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", s.maker))
	req.NoError(s.funds.Mint(s.ctx, domain.NativeToken, taker, bi(1000)))

	res, err := s.im.CancelOrder(s.ctx, s.maker, "1")
	req.NoError(err)
	req.Equal(s.maker, res.Maker)

	// cancellation is idempotent
	_, err = s.im.CancelOrder(s.ctx, s.maker, "1")
	req.NoError(err)

	_, err = s.im.BuyNFT(s.ctx, taker, bi(1000), &exchange.FillRequest{
		Order: o, Signature: sig, FillUnits: "1",
	})
	req.True(errors.Is(err, domain.ErrOrderUnfillable))
}

func (s *exchangeSuite) TestOnNFTReceived() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", taker))
	req.NoError(s.funds.Mint(s.ctx, wrapped, s.maker, bi(1000)))

	res, err := s.im.OnNFTReceived(s.ctx, &exchange.InboundNFT{
		From:          taker,
		AssetContract: nftContract,
		TokenId:       "7",
		Amount:        "1",
		Payload:       exchange.ReceivedPayload{Order: o, Signature: sig},
	})
	req.NoError(err)
	req.Equal(taker, res.Taker)

	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "7")
	req.NoError(err)
	req.Equal(s.maker, owner)
	req.Equal(bi(1000), s.wrappedBalance(taker))
}

func (s *exchangeSuite) TestOnNFTReceivedBouncesOnFailure() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", taker))
	// the maker cannot pay

	_, err := s.im.OnNFTReceived(s.ctx, &exchange.InboundNFT{
		From:          taker,
		AssetContract: nftContract,
		TokenId:       "7",
		Amount:        "1",
		Payload:       exchange.ReceivedPayload{Order: o, Signature: sig},
	})
	req.Error(err)

	// the inbound transfer bounced back to the sender
	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "7")
	req.NoError(err)
	req.Equal(taker, owner)
}

func (s *exchangeSuite) TestOnNFTReceivedWrongAmount() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	sig := s.sign(&o)

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "7", taker))
	req.NoError(s.funds.Mint(s.ctx, wrapped, s.maker, bi(1000)))

	// a single-unit order must be pushed exactly one unit
	_, err := s.im.OnNFTReceived(s.ctx, &exchange.InboundNFT{
		From:          taker,
		AssetContract: nftContract,
		TokenId:       "7",
		Amount:        "2",
		Payload:       exchange.ReceivedPayload{Order: o, Signature: sig},
	})
	req.True(errors.Is(err, domain.ErrMalformedOrder))

	// nothing moved
	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "7")
	req.NoError(err)
	req.Equal(taker, owner)
	req.Equal(bi(1000), s.wrappedBalance(s.maker))
}

func (s *exchangeSuite) TestOnNFTReceivedWrongCollection() {
	req := s.Require()

	o := s.buyOrder("7", "1", "1000")
	sig := s.sign(&o)

	_, err := s.im.OnNFTReceived(s.ctx, &exchange.InboundNFT{
		From:          taker,
		AssetContract: "0x9999999999999999999999999999999999999999",
		TokenId:       "7",
		Amount:        "1",
		Payload:       exchange.ReceivedPayload{Order: o, Signature: sig},
	})
	req.True(errors.Is(err, domain.ErrMalformedOrder))
}

func (s *exchangeSuite) twoSellOrders() ([]order.Order, []order.Signature) {
	o1 := s.sellOrder("1", "1", "100")
	o1.Nonce = "1"
	o2 := s.sellOrder("2", "1", "100")
	o2.Nonce = "2"
	return []order.Order{o1, o2}, []order.Signature{s.sign(&o1), s.sign(&o2)}
}

func (s *exchangeSuite) TestFillManyAtomic() {
	req := s.Require()

	orders, sigs := s.twoSellOrders()
	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "1", s.maker))
	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "2", s.maker))
	req.NoError(s.funds.Mint(s.ctx, domain.NativeToken, taker, bi(150)))

	// 150 covers the first order but not both
	_, err := s.im.FillMany(s.ctx, taker, bi(150), orders, sigs, []string{"1", "1"}, true)
	req.True(errors.Is(err, domain.ErrInsufficientPayment))

	// nothing moved
	req.Equal(bi(150), s.nativeBalance(taker))
	req.Equal(bi(0), s.nativeBalance(s.maker))
	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "1")
	req.NoError(err)
	req.Equal(s.maker, owner)
	remaining, err := s.im.RemainingUnits(s.ctx, &orders[0])
	req.NoError(err)
	req.Equal(bi(1), remaining)
}

func (s *exchangeSuite) TestFillManyBestEffort() {
	req := s.Require()

	orders, sigs := s.twoSellOrders()
	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "1", s.maker))
	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "2", s.maker))
	req.NoError(s.funds.Mint(s.ctx, domain.NativeToken, taker, bi(150)))

	results, err := s.im.FillMany(s.ctx, taker, bi(150), orders, sigs, []string{"1", "1"}, false)
	req.NoError(err)
	req.Len(results, 1)

	// the first order filled, the unconsumed 50 came back
	req.Equal(bi(50), s.nativeBalance(taker))
	req.Equal(bi(100), s.nativeBalance(s.maker))
	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "1")
	req.NoError(err)
	req.Equal(taker, owner)
	owner, err = s.nft.OwnerOf(s.ctx, nftContract, "2")
	req.NoError(err)
	req.Equal(s.maker, owner)
}

func (s *exchangeSuite) TestFillManyBothComplete() {
	req := s.Require()

	orders, sigs := s.twoSellOrders()
	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "1", s.maker))
	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "2", s.maker))
	req.NoError(s.funds.Mint(s.ctx, domain.NativeToken, taker, bi(250)))

	results, err := s.im.FillMany(s.ctx, taker, bi(250), orders, sigs, []string{"1", "1"}, true)
	req.NoError(err)
	req.Len(results, 2)
	req.Equal(bi(50), s.nativeBalance(taker))
	req.Equal(bi(200), s.nativeBalance(s.maker))
}

func (s *exchangeSuite) TestFillManyLengthMismatch() {
	req := s.Require()

	orders, sigs := s.twoSellOrders()
	_, err := s.im.FillMany(s.ctx, taker, bi(0), orders, sigs, []string{"1"}, true)
	req.True(errors.Is(err, domain.ErrArrayLengthMismatch))

	_, err = s.im.FillMany(s.ctx, taker, bi(0), orders, sigs[:1], []string{"1", "1"}, false)
	req.True(errors.Is(err, domain.ErrArrayLengthMismatch))
}

func (s *exchangeSuite) TestTransferManyAndCancel() {
	req := s.Require()

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "1", s.maker))
	req.NoError(s.nft.MintMulti(s.ctx, nftContract, "2", s.maker, bi(5)))

	items := []asset.TransferItem{
		{UnitModel: order.UnitModelSingle, AssetContract: nftContract, TokenId: "1"},
		{UnitModel: order.UnitModelMulti, AssetContract: nftContract, TokenId: "2", Amount: "3"},
	}
	req.NoError(s.im.TransferManyAndCancel(s.ctx, s.maker, items, taker, []string{"1", "2"}))

	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "1")
	req.NoError(err)
	req.Equal(taker, owner)
	bal, err := s.nft.BalanceOf(s.ctx, nftContract, "2", taker)
	req.NoError(err)
	req.Equal(bi(3), bal)

	cancelled, err := s.state.IsCancelled(s.ctx, s.maker, "2")
	req.NoError(err)
	req.True(cancelled)
}

func (s *exchangeSuite) TestTransferManyAllOrNothing() {
	req := s.Require()

	req.NoError(s.nft.MintSingle(s.ctx, nftContract, "1", s.maker))

	items := []asset.TransferItem{
		{UnitModel: order.UnitModelSingle, AssetContract: nftContract, TokenId: "1"},
		// not owned by the caller
		{UnitModel: order.UnitModelSingle, AssetContract: nftContract, TokenId: "404"},
	}
	err := s.im.TransferMany(s.ctx, s.maker, items, taker)
	req.True(errors.Is(err, domain.ErrTransferFailed))

	// the first transfer was rolled back
	owner, err := s.nft.OwnerOf(s.ctx, nftContract, "1")
	req.NoError(err)
	req.Equal(s.maker, owner)
}
