package domain

import (
	"math/big"
	"strings"

	"golang.org/x/xerrors"
)

type SortDir int8

const (
	SortDirAsc  SortDir = 1
	SortDirDesc SortDir = -1
)

type ChainId int32

type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

// NativeToken is the currency sentinel for the chain's native coin
const NativeToken = Address("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerPtr() *Address {
	res := a.ToLower()
	return &res
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0 || a.Equals(EmptyAddress)
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

func (i TokenId) ToBig() (*big.Int, error) {
	id, ok := new(big.Int).SetString(i.String(), 10)
	if !ok {
		return nil, xerrors.Errorf("invalid token id %q: %w", i.String(), ErrInvalidNumberFormat)
	}
	return id, nil
}

type OrderHash string

func (h OrderHash) ToLower() OrderHash {
	return OrderHash(strings.ToLower(string(h)))
}

// Hash32 is a 0x-prefixed 32-byte hex value, e.g. an allowlist root
type Hash32 string

const EmptyHash32 = Hash32("0x0000000000000000000000000000000000000000000000000000000000000000")

// AnyTokenIdRoot is the allowlist sentinel matching every token id. It is
// never a computed Merkle root; order submission guards that.
const AnyTokenIdRoot = Hash32("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

func (h Hash32) ToLower() Hash32 {
	return Hash32(strings.ToLower(string(h)))
}

func (h Hash32) IsEmpty() bool {
	return len(h) == 0 || h.ToLower() == EmptyHash32
}

// Table is a mongo collection name
type Table string

const (
	TableOrders Table = "orders"
)

// ToBigInt converts decimal strings into big ints, failing on the first
// malformed value
func ToBigInt(vals []string) ([]*big.Int, error) {
	res := make([]*big.Int, len(vals))
	for i, val := range vals {
		num, ok := new(big.Int).SetString(val, 10)
		if !ok {
			return nil, xerrors.Errorf("invalid number %q: %w", val, ErrInvalidNumberFormat)
		}
		res[i] = num
	}
	return res, nil
}
