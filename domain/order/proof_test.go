package order

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x-xyz/goexchange/domain"
)

func allowlistBuy(root domain.Hash32) Order {
	o := validBuy()
	o.TokenId = "0"
	o.AllowlistRoot = root
	return o
}

func TestComputeAllowlistRoot(t *testing.T) {
	req := require.New(t)

	ids := []domain.TokenId{"3", "5", "9"}
	root, err := ComputeAllowlistRoot(ids)
	req.NoError(err)
	req.NotEqual(domain.EmptyHash32, root)
	req.NotEqual(domain.AnyTokenIdRoot, root)

	// order of the id set changes the tree
	root2, err := ComputeAllowlistRoot([]domain.TokenId{"9", "5", "3"})
	req.NoError(err)
	req.NotEqual(root, root2)

	_, err = ComputeAllowlistRoot(nil)
	req.Error(err)
}

func TestValidateTokenIdExplicit(t *testing.T) {
	req := require.New(t)

	o := validBuy() // explicit token id 7
	req.True(o.ValidateTokenId("7", nil))
	req.False(o.ValidateTokenId("8", nil))
	// a proof against an explicit-id order is refused
	req.False(o.ValidateTokenId("7", []domain.Hash32{domain.EmptyHash32}))
}

func TestValidateTokenIdAnySentinel(t *testing.T) {
	req := require.New(t)

	o := allowlistBuy(domain.AnyTokenIdRoot)
	req.True(o.ValidateTokenId("1", nil))
	req.True(o.ValidateTokenId("999999999999999999999999", nil))
	// the sentinel takes no proof
	req.False(o.ValidateTokenId("1", []domain.Hash32{domain.EmptyHash32}))
}

func TestValidateTokenIdMerkle(t *testing.T) {
	req := require.New(t)

	ids := []domain.TokenId{"3", "5", "9", "42"}
	root, err := ComputeAllowlistRoot(ids)
	req.NoError(err)
	o := allowlistBuy(root)

	for i, id := range ids {
		proof, err := ComputeAllowlistProof(ids, i)
		req.NoError(err)
		req.True(o.ValidateTokenId(id, proof), string(id))
	}

	// proof for one id does not validate another
	proof, err := ComputeAllowlistProof(ids, 0)
	req.NoError(err)
	req.False(o.ValidateTokenId("5", proof))
	req.False(o.ValidateTokenId("7", proof))
	req.False(o.ValidateTokenId("3", nil))
}

func TestValidateTokenIdAllowlistSellRefused(t *testing.T) {
	req := require.New(t)

	ids := []domain.TokenId{"3", "5"}
	root, err := ComputeAllowlistRoot(ids)
	req.NoError(err)

	o := validSell()
	o.TokenId = "0"
	o.AllowlistRoot = root

	proof, err := ComputeAllowlistProof(ids, 0)
	req.NoError(err)
	req.False(o.ValidateTokenId("3", proof))
}

func TestValidateTokenIdTamperedRoot(t *testing.T) {
	req := require.New(t)

	ids := []domain.TokenId{"3", "5", "9"}
	root, err := ComputeAllowlistRoot(ids)
	req.NoError(err)

	// flip a nibble of the root
	tampered := []byte(root)
	if tampered[3] == 'f' {
		tampered[3] = '0'
	} else {
		tampered[3] = 'f'
	}
	o := allowlistBuy(domain.Hash32(tampered))

	proof, err := ComputeAllowlistProof(ids, 0)
	req.NoError(err)
	req.False(o.ValidateTokenId("3", proof))
}
