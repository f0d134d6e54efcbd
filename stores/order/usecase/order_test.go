package usecase

import (
	"crypto/ecdsa"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/order"
	mOrder "github.com/x-xyz/goexchange/domain/order/mocks"
	"github.com/x-xyz/goexchange/stores/exchange/repository"
)

const (
	chainId = domain.ChainId(1)
	engine  = domain.Address("0x1a01ecd2263a9d5b5967667e508ea22db478bc4b")
	wrapped = domain.Address("0xb4fbf271143f4fbf7b91a5ded31805e42b2208d6")
)

var frozenNow = time.Unix(1700000000, 0)

func newSigner(t *testing.T) (*ecdsa.PrivateKey, domain.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := domain.Address(crypto.PubkeyToAddress(key.PublicKey).Hex()).ToLower()
	return key, addr
}

func signOrder(t *testing.T, key *ecdsa.PrivateKey, o *order.Order) order.Signature {
	digest, err := o.SigningDigest(engine)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	return order.Signature{
		Scheme: order.SchemeEIP712,
		V:      int(sig[64]) + 27,
		R:      hexutil.Encode(sig[:32]),
		S:      hexutil.Encode(sig[32:64]),
	}
}

func sellOrder(maker domain.Address) order.Order {
	return order.Order{
		ChainId:       chainId,
		Direction:     order.DirectionSellNFT,
		Maker:         maker,
		Expiry:        strconv.FormatInt(frozenNow.Add(time.Hour).Unix(), 10),
		Nonce:         "1",
		PaymentToken:  domain.NativeToken,
		PaymentAmount: "1000",
		AssetContract: "0xdcf0de6b17785a143d006e1515a6afd123cde8ba",
		TokenId:       "7",
		Quantity:      "1",
		UnitModel:     order.UnitModelSingle,
	}
}

func newTestUseCase(repo order.Repo) (order.UseCase, *impl) {
	uc := New(&OrderUseCaseCfg{
		ChainId:       chainId,
		EngineAddress: engine,
		WrappedToken:  wrapped,
		OrderRepo:     repo,
		StateRepo:     repository.NewStateRepo(),
		Now:           func() time.Time { return frozenNow },
	})
	return uc, uc.(*impl)
}

func TestMakeOrder(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	key, maker := newSigner(t)

	repo := &mOrder.Repo{}
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	uc, _ := newTestUseCase(repo)

	o := sellOrder(maker)
	sig := signOrder(t, key, &o)

	stored, err := uc.MakeOrder(c, o, sig)
	req.NoError(err)
	req.NotEmpty(stored.OrderHash)
	repo.AssertExpectations(t)
}

func TestMakeOrderRejectsTamperedSignature(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	key, maker := newSigner(t)

	uc, _ := newTestUseCase(&mOrder.Repo{})

	o := sellOrder(maker)
	sig := signOrder(t, key, &o)
	o.PaymentAmount = "999" // signed terms no longer match

	_, err := uc.MakeOrder(c, o, sig)
	req.True(errors.Is(err, domain.ErrInvalidSignature))
}

func TestMakeOrderRejectsWrongCurrency(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	key, maker := newSigner(t)

	uc, _ := newTestUseCase(&mOrder.Repo{})

	o := sellOrder(maker)
	o.PaymentToken = wrapped // sell orders must price in native currency
	sig := signOrder(t, key, &o)

	_, err := uc.MakeOrder(c, o, sig)
	req.True(errors.Is(err, domain.ErrMalformedOrder))
}

func TestMakeOrderRejectsExpired(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	key, maker := newSigner(t)

	uc, _ := newTestUseCase(&mOrder.Repo{})

	o := sellOrder(maker)
	o.Expiry = strconv.FormatInt(frozenNow.Add(-time.Minute).Unix(), 10)
	sig := signOrder(t, key, &o)

	_, err := uc.MakeOrder(c, o, sig)
	req.True(errors.Is(err, domain.ErrOrderExpired))
}

func TestMakeOrderRejectsCancelledNonce(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	key, maker := newSigner(t)

	uc, im := newTestUseCase(&mOrder.Repo{})
	req.NoError(im.stateRepo.Cancel(c, maker, "1"))

	o := sellOrder(maker)
	sig := signOrder(t, key, &o)

	_, err := uc.MakeOrder(c, o, sig)
	req.True(errors.Is(err, domain.ErrOrderUnfillable))
}

func TestCancelByNonce(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	_, maker := newSigner(t)

	stored := sellOrder(maker)
	stored.OrderHash = "0xabc"

	repo := &mOrder.Repo{}
	repo.On("FindAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*order.Order{&stored}, nil).Once()
	repo.On("Update", mock.Anything, stored.ToId(), mock.Anything).Return(nil).Once()

	uc, im := newTestUseCase(repo)
	req.NoError(uc.CancelByNonce(c, chainId, maker, "1"))

	cancelled, err := im.stateRepo.IsCancelled(c, maker, "1")
	req.NoError(err)
	req.True(cancelled)
	repo.AssertExpectations(t)
}
