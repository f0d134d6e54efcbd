package order

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/x-xyz/goexchange/base/ethereum"
	"github.com/x-xyz/goexchange/domain"
	"golang.org/x/xerrors"
)

const (
	PrimaryType      = "NFTSwapOrder"
	Eip712DomainName = "EIP712Domain"

	protocolName    = "XSettlement"
	protocolVersion = "1"
)

func GetDomainSeparator(chainId domain.ChainId, address domain.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              protocolName,
		Version:           protocolVersion,
		ChainId:           math.NewHexOrDecimal256(int64(chainId)),
		VerifyingContract: address.ToLowerStr(),
	}
}

var OrderTypes = apitypes.Types{
	"NFTSwapOrder": {
		{Name: "direction", Type: "uint8"},
		{Name: "maker", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "expiry", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "paymentToken", Type: "address"},
		{Name: "paymentAmount", Type: "uint256"},
		{Name: "fees", Type: "Fee[]"},
		{Name: "assetContract", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "quantity", Type: "uint128"},
		{Name: "unitModel", Type: "uint8"},
		{Name: "allowlistRoot", Type: "bytes32"},
	},
	"Fee": {
		{Name: "recipient", Type: "address"},
		{Name: "amount", Type: "uint256"},
	},
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
}

func (f *Fee) ToMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"recipient": f.Recipient.ToLowerStr(),
		"amount":    f.Amount,
	}
}

func (o *Order) ToMessage() apitypes.TypedDataMessage {
	fees := []interface{}{}
	for i := range o.Fees {
		fees = append(fees, o.Fees[i].ToMessage())
	}
	taker := o.Taker
	if taker.IsEmpty() {
		taker = domain.EmptyAddress
	}
	root := o.AllowlistRoot
	if len(root) == 0 {
		root = domain.EmptyHash32
	}
	return apitypes.TypedDataMessage{
		"direction":     strconv.Itoa(int(o.Direction)),
		"maker":         o.Maker.ToLowerStr(),
		"taker":         taker.ToLowerStr(),
		"expiry":        o.Expiry,
		"nonce":         o.Nonce,
		"paymentToken":  o.PaymentToken.ToLowerStr(),
		"paymentAmount": o.PaymentAmount,
		"fees":          fees,
		"assetContract": o.AssetContract.ToLowerStr(),
		"tokenId":       o.TokenId.String(),
		"quantity":      o.Quantity,
		"unitModel":     strconv.Itoa(int(o.UnitModel)),
		"allowlistRoot": string(root.ToLower()),
	}
}

func (o *Order) typedData(verifyingContract domain.Address) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       OrderTypes,
		PrimaryType: PrimaryType,
		Domain:      GetDomainSeparator(o.ChainId, verifyingContract),
		Message:     o.ToMessage(),
	}
}

// HashStruct computes the struct hash of the order's protocol fields,
// without domain separation
func (o *Order) HashStruct() ([]byte, error) {
	typedData := o.typedData(domain.EmptyAddress)
	return typedData.HashStruct(typedData.PrimaryType, typedData.Message)
}

// SigningDigest computes the domain-separated digest the maker signs:
// keccak256(0x19 || 0x01 || domainSeparator || structHash). Replaying the
// same order against a different chain or verifying contract yields a
// different digest.
func (o *Order) SigningDigest(verifyingContract domain.Address) ([]byte, error) {
	typedData := o.typedData(verifyingContract)
	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, err
	}
	domainHash, err := typedData.HashStruct(Eip712DomainName, typedData.Domain.Map())
	if err != nil {
		return nil, err
	}
	raw := []byte{0x19, 0x01}
	raw = append(raw, domainHash...)
	raw = append(raw, structHash...)
	return crypto.Keccak256(raw), nil
}

// Hash computes the order's public identifier
func (o *Order) Hash(verifyingContract domain.Address) (domain.OrderHash, error) {
	digest, err := o.SigningDigest(verifyingContract)
	if err != nil {
		return "", err
	}
	return domain.OrderHash(hexutil.Encode(digest)), nil
}

// VerifySignature recovers the signing identity of `sig` over the order's
// digest and checks it against the declared maker. Unknown signature schemes
// fail closed.
func (o *Order) VerifySignature(sig *Signature, verifyingContract domain.Address) (bool, error) {
	if sig == nil || sig.Scheme != SchemeEIP712 {
		return false, nil
	}
	digest, err := o.SigningDigest(verifyingContract)
	if err != nil {
		return false, err
	}
	r, err := hexutil.Decode(sig.R)
	if err != nil {
		return false, xerrors.Errorf("decode r: %w", err)
	}
	s, err := hexutil.Decode(sig.S)
	if err != nil {
		return false, xerrors.Errorf("decode s: %w", err)
	}
	if len(r) != 32 || len(s) != 32 {
		return false, nil
	}
	raw := make([]byte, 0, 65)
	raw = append(raw, r...)
	raw = append(raw, s...)
	raw = append(raw, byte(sig.V))
	return ethereum.ValidateHashSignature(digest, hexutil.Encode(raw), o.Maker.ToLowerStr())
}
