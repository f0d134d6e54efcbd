package merkle

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func makeLeaves(n int) []common.Hash {
	leaves := make([]common.Hash, n)
	for i := 0; i < n; i++ {
		leaves[i] = crypto.Keccak256Hash([]byte(fmt.Sprintf("leaf-%d", i)))
	}
	return leaves
}

func TestVerify(t *testing.T) {
	req := require.New(t)

	for _, n := range []int{1, 2, 3, 7, 8, 15} {
		leaves := makeLeaves(n)
		root := ComputeRoot(leaves)
		for i := range leaves {
			proof := ComputeProof(leaves, i)
			req.True(Verify(root, leaves[i], proof), "n=%d i=%d", n, i)
		}
	}
}

func TestVerifyRejectsForeignLeaf(t *testing.T) {
	req := require.New(t)

	leaves := makeLeaves(8)
	root := ComputeRoot(leaves)
	proof := ComputeProof(leaves, 3)

	outsider := crypto.Keccak256Hash([]byte("not a member"))
	req.False(Verify(root, outsider, proof))
}

func TestVerifyRejectsTamperedRoot(t *testing.T) {
	req := require.New(t)

	leaves := makeLeaves(8)
	root := ComputeRoot(leaves)
	proof := ComputeProof(leaves, 0)
	req.True(Verify(root, leaves[0], proof))

	tampered := root
	tampered[0] ^= 0x01
	req.False(Verify(tampered, leaves[0], proof))
}

func TestVerifySortedPairIsOrderIndependent(t *testing.T) {
	req := require.New(t)

	a := crypto.Keccak256Hash([]byte("a"))
	b := crypto.Keccak256Hash([]byte("b"))
	req.Equal(hashPair(a, b), hashPair(b, a))
}

func TestComputeRootSingleLeaf(t *testing.T) {
	req := require.New(t)

	leaf := crypto.Keccak256Hash([]byte("only"))
	req.Equal(leaf, ComputeRoot([]common.Hash{leaf}))
	req.True(Verify(leaf, leaf, nil))
}
