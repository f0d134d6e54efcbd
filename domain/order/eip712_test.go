package order

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/x-xyz/goexchange/domain"
)

const (
	testEngine  = domain.Address("0x1a01ecd2263a9d5b5967667e508ea22db478bc4b")
	testWrapped = domain.Address("0xb4fbf271143f4fbf7b91a5ded31805e42b2208d6")
)

func baseOrder() Order {
	return Order{
		ChainId:       1,
		Direction:     DirectionSellNFT,
		Maker:         "0xce4468e7ce84aceb74363f4ea64e5a038176f369",
		Expiry:        "1700003600",
		Nonce:         "1",
		PaymentToken:  domain.NativeToken,
		PaymentAmount: "1000",
		Fees: []Fee{
			{Recipient: "0xdf8650b0ca1260f7a2f4fdff9082aede554f65ad", Amount: "10"},
			{Recipient: "0x07fe9ffd85b54a3a18467d3b5e91a55ecc52a268", Amount: "20"},
		},
		AssetContract: "0xdcf0de6b17785a143d006e1515a6afd123cde8ba",
		TokenId:       "7",
		Quantity:      "1",
		UnitModel:     UnitModelSingle,
	}
}

func TestHashDeterministic(t *testing.T) {
	req := require.New(t)

	o1 := baseOrder()
	o2 := baseOrder()

	h1, err := o1.Hash(testEngine)
	req.NoError(err)
	h2, err := o2.Hash(testEngine)
	req.NoError(err)
	req.Equal(h1, h2)
	req.Len(string(h1), 66)
}

func TestHashFieldSensitivity(t *testing.T) {
	req := require.New(t)

	base := baseOrder()
	baseHash, err := base.Hash(testEngine)
	req.NoError(err)

	mutations := map[string]func(*Order){
		"direction":     func(o *Order) { o.Direction = DirectionBuyNFT },
		"maker":         func(o *Order) { o.Maker = "0x07fe9ffd85b54a3a18467d3b5e91a55ecc52a268" },
		"taker":         func(o *Order) { o.Taker = "0x07fe9ffd85b54a3a18467d3b5e91a55ecc52a268" },
		"expiry":        func(o *Order) { o.Expiry = "1700003601" },
		"nonce":         func(o *Order) { o.Nonce = "2" },
		"paymentAmount": func(o *Order) { o.PaymentAmount = "1001" },
		"feeAmount":     func(o *Order) { o.Fees[0].Amount = "11" },
		"feeOrder":      func(o *Order) { o.Fees[0], o.Fees[1] = o.Fees[1], o.Fees[0] },
		"tokenId":       func(o *Order) { o.TokenId = "8" },
		"quantity":      func(o *Order) { o.Quantity = "2"; o.UnitModel = UnitModelMulti },
		"unitModel":     func(o *Order) { o.UnitModel = UnitModelMulti },
		"allowlistRoot": func(o *Order) { o.AllowlistRoot = domain.AnyTokenIdRoot },
	}
	for name, mutate := range mutations {
		o := baseOrder()
		mutate(&o)
		h, err := o.Hash(testEngine)
		require.NoError(t, err, name)
		require.NotEqual(t, baseHash, h, name)
	}
}

func TestHashDomainSensitivity(t *testing.T) {
	req := require.New(t)

	o := baseOrder()
	h1, err := o.Hash(testEngine)
	req.NoError(err)

	// same order on another chain
	o2 := baseOrder()
	o2.ChainId = 137
	h2, err := o2.Hash(testEngine)
	req.NoError(err)
	req.NotEqual(h1, h2)

	// same order against another verifying contract
	h3, err := o.Hash(testWrapped)
	req.NoError(err)
	req.NotEqual(h1, h3)
}

func TestSignatureRoundTrip(t *testing.T) {
	req := require.New(t)

	key, err := crypto.GenerateKey()
	req.NoError(err)
	maker := domain.Address(crypto.PubkeyToAddress(key.PublicKey).Hex()).ToLower()

	o := baseOrder()
	o.Maker = maker

	digest, err := o.SigningDigest(testEngine)
	req.NoError(err)
	raw, err := crypto.Sign(digest, key)
	req.NoError(err)

	sig := Signature{
		Scheme: SchemeEIP712,
		V:      int(raw[64]) + 27,
		R:      hexutil.Encode(raw[:32]),
		S:      hexutil.Encode(raw[32:64]),
	}
	ok, err := o.VerifySignature(&sig, testEngine)
	req.NoError(err)
	req.True(ok)

	// a different maker fails recovery
	o.Maker = "0xce4468e7ce84aceb74363f4ea64e5a038176f369"
	ok, err = o.VerifySignature(&sig, testEngine)
	req.NoError(err)
	req.False(ok)
}

func TestVerifySignatureUnknownScheme(t *testing.T) {
	req := require.New(t)

	o := baseOrder()
	ok, err := o.VerifySignature(&Signature{Scheme: 1}, testEngine)
	req.NoError(err)
	req.False(ok)

	ok, err = o.VerifySignature(nil, testEngine)
	req.NoError(err)
	req.False(ok)
}
