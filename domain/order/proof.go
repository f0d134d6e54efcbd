package order

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/x-xyz/goexchange/base/merkle"
	"github.com/x-xyz/goexchange/domain"
	"golang.org/x/xerrors"
)

// TokenIdLeaf hashes a token id the way allowlist trees commit to it,
// keccak256 of the id as a 32-byte big-endian word
func TokenIdLeaf(id domain.TokenId) (common.Hash, error) {
	n, err := id.ToBig()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(common.BigToHash(n).Bytes()), nil
}

func tokenIdLeaves(ids []domain.TokenId) ([]common.Hash, error) {
	leaves := make([]common.Hash, len(ids))
	for i, id := range ids {
		leaf, err := TokenIdLeaf(id)
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// ComputeAllowlistRoot commits to an explicit id set. The any-id sentinel is
// reserved and may never be produced by an actual set; that is guarded here,
// at construction time, not during proof validation.
func ComputeAllowlistRoot(ids []domain.TokenId) (domain.Hash32, error) {
	if len(ids) == 0 {
		return "", xerrors.Errorf("empty id set: %w", domain.ErrMalformedOrder)
	}
	leaves, err := tokenIdLeaves(ids)
	if err != nil {
		return "", err
	}
	root := domain.Hash32(merkle.ComputeRoot(leaves).Hex()).ToLower()
	if root == domain.AnyTokenIdRoot || root == domain.EmptyHash32 {
		return "", xerrors.Errorf("id set commits to a reserved root: %w", domain.ErrMalformedOrder)
	}
	return root, nil
}

// ComputeAllowlistProof produces the inclusion proof for ids[index] in the
// tree built by ComputeAllowlistRoot
func ComputeAllowlistProof(ids []domain.TokenId, index int) ([]domain.Hash32, error) {
	leaves, err := tokenIdLeaves(ids)
	if err != nil {
		return nil, err
	}
	siblings := merkle.ComputeProof(leaves, index)
	proof := make([]domain.Hash32, len(siblings))
	for i, s := range siblings {
		proof[i] = domain.Hash32(s.Hex()).ToLower()
	}
	return proof, nil
}

// ValidateTokenId decides whether `concreteId` may satisfy the order's NFT
// leg, given the caller-supplied inclusion proof:
//   - allowlists are only meaningful on buy-side offers
//   - the any-id sentinel root matches every id, with an empty proof
//   - the zero root matches only the order's literal token id, empty proof
//   - otherwise the standard sorted-pair Merkle inclusion check applies
func (o *Order) ValidateTokenId(concreteId domain.TokenId, proof []domain.Hash32) bool {
	if o.UsesAllowlist() && o.Direction != DirectionBuyNFT {
		return false
	}

	if o.IsAnyTokenId() {
		return len(proof) == 0
	}

	if !o.UsesAllowlist() {
		return len(proof) == 0 && concreteId == o.TokenId
	}

	leaf, err := TokenIdLeaf(concreteId)
	if err != nil {
		return false
	}
	siblings := make([]common.Hash, len(proof))
	for i, p := range proof {
		siblings[i] = common.HexToHash(string(p))
	}
	return merkle.Verify(common.HexToHash(string(o.AllowlistRoot)), leaf, siblings)
}
