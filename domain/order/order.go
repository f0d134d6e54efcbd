package order

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"golang.org/x/xerrors"
)

type Direction uint8

const (
	DirectionSellNFT Direction = 0
	DirectionBuyNFT  Direction = 1
)

type UnitModel uint8

const (
	// UnitModelSingle is an indivisible one-of-a-kind unit, transfer amount always 1
	UnitModelSingle UnitModel = 0
	// UnitModelMulti is a fungible collection where many identical units share one id
	UnitModelMulti UnitModel = 1
)

type SignatureScheme uint8

const (
	SchemeEIP712 SignatureScheme = 2
)

// Signature is a secp256k1 signature over the order's signing digest.
// Stateless, never persisted.
type Signature struct {
	Scheme SignatureScheme `json:"scheme"`
	V      int             `json:"v"`
	R      string          `json:"r"`
	S      string          `json:"s"`
}

type Fee struct {
	Recipient domain.Address `json:"recipient" bson:"recipient"`
	Amount    string         `json:"amount" bson:"amount"`
}

type Order struct {
	ChainId   domain.ChainId   `json:"chainId" bson:"chainId"`
	OrderHash domain.OrderHash `json:"orderHash" bson:"orderHash"`
	Direction Direction        `json:"direction" bson:"direction"`
	Maker     domain.Address   `json:"maker" bson:"maker"`
	Taker     domain.Address   `json:"taker" bson:"taker"`
	// Expiry is an absolute unix timestamp in seconds, decimal string
	Expiry string `json:"expiry" bson:"expiry"`
	// Nonce is scoped per maker and used only for cancellation
	Nonce         string         `json:"nonce" bson:"nonce"`
	PaymentToken  domain.Address `json:"paymentToken" bson:"paymentToken"`
	PaymentAmount string         `json:"paymentAmount" bson:"paymentAmount"`
	Fees          []Fee          `json:"fees" bson:"fees"`
	AssetContract domain.Address `json:"assetContract" bson:"assetContract"`
	TokenId       domain.TokenId `json:"tokenId" bson:"tokenId"`
	// Quantity is the total fillable units for the full nominal price,
	// fixed at creation; consumption is tracked in the state store
	Quantity      string        `json:"quantity" bson:"quantity"`
	UnitModel     UnitModel     `json:"unitModel" bson:"unitModel"`
	AllowlistRoot domain.Hash32 `json:"allowlistRoot" bson:"allowlistRoot"`

	// true once cancelled via nonce, kept on the stored copy for queries
	IsCancelled bool `json:"isCancelled" bson:"isCancelled"`

	// ExpiryUnix is Expiry parsed to a unix timestamp, set at storage time
	// so expiry range queries compare numerically
	ExpiryUnix int64 `json:"-" bson:"expiryUnix"`
}

type Id struct {
	ChainId   domain.ChainId   `json:"chainId" bson:"chainId"`
	OrderHash domain.OrderHash `json:"orderHash" bson:"orderHash"`
}

func (o *Order) ToId() Id {
	return Id{
		ChainId:   o.ChainId,
		OrderHash: o.OrderHash,
	}
}

func (o *Order) LowerCase() {
	o.OrderHash = o.OrderHash.ToLower()
	o.Maker = o.Maker.ToLower()
	o.Taker = o.Taker.ToLower()
	o.PaymentToken = o.PaymentToken.ToLower()
	o.AssetContract = o.AssetContract.ToLower()
	o.AllowlistRoot = o.AllowlistRoot.ToLower()
	for i := range o.Fees {
		o.Fees[i].Recipient = o.Fees[i].Recipient.ToLower()
	}
}

// UsesAllowlist reports whether the order commits to a token id set instead
// of a single explicit id
func (o *Order) UsesAllowlist() bool {
	return !o.AllowlistRoot.IsEmpty()
}

// IsAnyTokenId reports whether the order accepts every token id of the
// collection
func (o *Order) IsAnyTokenId() bool {
	return o.AllowlistRoot.ToLower() == domain.AnyTokenIdRoot
}

// TakerIsWildcard reports whether any counterparty may fill the order
func (o *Order) TakerIsWildcard() bool {
	return o.Taker.IsEmpty()
}

func (o *Order) PaymentAmountBig() (*big.Int, error) {
	nums, err := domain.ToBigInt([]string{o.PaymentAmount})
	if err != nil {
		return nil, err
	}
	return nums[0], nil
}

// paymentTokenDecimals is 18 for both the native currency and its wrapped
// form, the only currencies an order may price in
const paymentTokenDecimals = 18

// DisplayPrice renders the payment amount in whole-token units
func (o *Order) DisplayPrice() (decimal.Decimal, error) {
	amount, err := o.PaymentAmountBig()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(amount, -paymentTokenDecimals), nil
}

func (o *Order) QuantityBig() (*big.Int, error) {
	nums, err := domain.ToBigInt([]string{o.Quantity})
	if err != nil {
		return nil, err
	}
	return nums[0], nil
}

func (o *Order) ExpiryTime() (time.Time, error) {
	nums, err := domain.ToBigInt([]string{o.Expiry})
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(nums[0].Int64(), 0), nil
}

// Expired reports whether the order's data-level deadline has passed
func (o *Order) Expired(now time.Time) (bool, error) {
	exp, err := o.ExpiryTime()
	if err != nil {
		return false, err
	}
	return !exp.After(now), nil
}

func isHash32(h domain.Hash32) bool {
	s := strings.ToLower(string(h))
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return false
	}
	for _, c := range s[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of a well-formed order.
// `wrapped` is the designated wrapped-currency contract and `engine` is the
// engine's own identity, which may not receive fees.
func (o *Order) Validate(wrapped, engine domain.Address) error {
	if o.Direction != DirectionSellNFT && o.Direction != DirectionBuyNFT {
		return xerrors.Errorf("unknown direction %d: %w", o.Direction, domain.ErrMalformedOrder)
	}
	if o.UnitModel != UnitModelSingle && o.UnitModel != UnitModelMulti {
		return xerrors.Errorf("unknown unit model %d: %w", o.UnitModel, domain.ErrMalformedOrder)
	}
	if o.Maker.IsEmpty() {
		return xerrors.Errorf("missing maker: %w", domain.ErrMalformedOrder)
	}
	if o.AssetContract.IsEmpty() {
		return xerrors.Errorf("missing asset contract: %w", domain.ErrMalformedOrder)
	}

	nums, err := domain.ToBigInt([]string{o.Expiry, o.Nonce, o.PaymentAmount, o.Quantity, o.TokenId.String()})
	if err != nil {
		return xerrors.Errorf("%v: %w", err, domain.ErrMalformedOrder)
	}
	quantity := nums[3]
	tokenId := nums[4]

	if quantity.Sign() <= 0 {
		return xerrors.Errorf("zero quantity: %w", domain.ErrMalformedOrder)
	}
	if o.UnitModel == UnitModelSingle && quantity.Cmp(big.NewInt(1)) != 0 {
		return xerrors.Errorf("single-unit order must have quantity 1: %w", domain.ErrMalformedOrder)
	}

	// sell orders price in native currency, buy orders in the wrapped currency
	switch o.Direction {
	case DirectionSellNFT:
		if !o.PaymentToken.Equals(domain.NativeToken) {
			return xerrors.Errorf("sell order must price in native currency: %w", domain.ErrMalformedOrder)
		}
	case DirectionBuyNFT:
		if !o.PaymentToken.Equals(wrapped) {
			return xerrors.Errorf("buy order must price in wrapped currency: %w", domain.ErrMalformedOrder)
		}
	}

	if o.UsesAllowlist() {
		if !isHash32(o.AllowlistRoot) {
			return xerrors.Errorf("malformed allowlist root: %w", domain.ErrMalformedOrder)
		}
		if o.Direction != DirectionBuyNFT {
			return xerrors.Errorf("allowlist on a sell order: %w", domain.ErrMalformedOrder)
		}
		// an explicit token id and an allowlist root are mutually exclusive
		if tokenId.Sign() != 0 {
			return xerrors.Errorf("both token id and allowlist root set: %w", domain.ErrMalformedOrder)
		}
	} else if len(o.AllowlistRoot) != 0 && !isHash32(o.AllowlistRoot) {
		return xerrors.Errorf("malformed allowlist root: %w", domain.ErrMalformedOrder)
	}

	for _, fee := range o.Fees {
		if _, err := domain.ToBigInt([]string{fee.Amount}); err != nil {
			return xerrors.Errorf("%v: %w", err, domain.ErrMalformedOrder)
		}
		if fee.Recipient.Equals(engine) {
			return xerrors.Errorf("fee recipient is the engine itself: %w", domain.ErrMalformedOrder)
		}
	}

	return nil
}

type FindAllOptions struct {
	SortBy        *string
	SortDir       *domain.SortDir
	Offset        *int32
	Limit         *int32
	ChainId       *domain.ChainId
	OrderHash     *domain.OrderHash
	Maker         *domain.Address
	Direction     *Direction
	AssetContract *domain.Address
	Nonce         *string
	IsCancelled   *bool
	ExpiryGT      *time.Time
	ExpiryLT      *time.Time
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithSort(sortby string, sortdir domain.SortDir) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SortBy = &sortby
		options.SortDir = &sortdir
		return nil
	}
}

func WithPagination(offset int32, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func WithChainId(chainId domain.ChainId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ChainId = &chainId
		return nil
	}
}

func WithOrderHash(orderHash domain.OrderHash) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		h := orderHash.ToLower()
		options.OrderHash = &h
		return nil
	}
}

func WithMaker(maker domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Maker = maker.ToLowerPtr()
		return nil
	}
}

func WithDirection(direction Direction) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Direction = &direction
		return nil
	}
}

func WithAssetContract(contract domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.AssetContract = contract.ToLowerPtr()
		return nil
	}
}

func WithNonce(nonce string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Nonce = &nonce
		return nil
	}
}

func WithIsCancelled(isCancelled bool) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.IsCancelled = &isCancelled
		return nil
	}
}

func WithExpiryGT(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ExpiryGT = &t
		return nil
	}
}

func WithExpiryLT(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ExpiryLT = &t
		return nil
	}
}

type Patchable struct {
	IsCancelled *bool `json:"isCancelled" bson:"isCancelled,omitempty"`
}

type Repo interface {
	FindAll(ctx.Ctx, ...FindAllOptionsFunc) ([]*Order, error)
	Count(ctx.Ctx, ...FindAllOptionsFunc) (int, error)
	FindOne(ctx.Ctx, Id) (*Order, error)
	Upsert(ctx.Ctx, *Order) error
	Update(ctx.Ctx, Id, Patchable) error
}

type UseCase interface {
	MakeOrder(ctx.Ctx, Order, Signature) (*Order, error)
	GetOrder(ctx.Ctx, Id) (*Order, error)
	FindAll(ctx.Ctx, ...FindAllOptionsFunc) ([]*Order, error)
	CancelByNonce(ctx.Ctx, domain.ChainId, domain.Address, string) error
}
