package ethereum

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestValidateHashSignature(t *testing.T) {
	req := require.New(t)

	key, err := crypto.GenerateKey()
	req.NoError(err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	hash := crypto.Keccak256([]byte("order digest"))
	sig, err := crypto.Sign(hash, key)
	req.NoError(err)

	ok, err := ValidateHashSignature(hash, hexutil.Encode(sig), signer.Hex())
	req.NoError(err)
	req.True(ok)

	otherKey, err := crypto.GenerateKey()
	req.NoError(err)
	other := crypto.PubkeyToAddress(otherKey.PublicKey)

	ok, err = ValidateHashSignature(hash, hexutil.Encode(sig), other.Hex())
	req.NoError(err)
	req.False(ok)

	// tampered digest recovers a different key
	otherHash := crypto.Keccak256([]byte("another digest"))
	ok, err = ValidateHashSignature(otherHash, hexutil.Encode(sig), signer.Hex())
	req.NoError(err)
	req.False(ok)

	// truncated signature is rejected
	_, err = ValidateHashSignature(hash, hexutil.Encode(sig[:64]), signer.Hex())
	req.Error(err)
}
