package repository

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
)

const (
	maker = domain.Address("0x1111111111111111111111111111111111111111")
	hash  = domain.OrderHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

func bi(n int64) *big.Int { return big.NewInt(n) }

func TestCancelIdempotent(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	r := NewStateRepo()

	cancelled, err := r.IsCancelled(c, maker, "1")
	req.NoError(err)
	req.False(cancelled)

	req.NoError(r.Cancel(c, maker, "1"))
	req.NoError(r.Cancel(c, maker, "1"))

	cancelled, err = r.IsCancelled(c, maker, "1")
	req.NoError(err)
	req.True(cancelled)

	// other nonces and makers unaffected
	cancelled, err = r.IsCancelled(c, maker, "2")
	req.NoError(err)
	req.False(cancelled)
}

func TestRemainingLazyRecord(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	r := NewStateRepo()

	// no record yet, the full quantity is available
	remaining, err := r.RemainingUnits(c, hash, bi(20))
	req.NoError(err)
	req.Equal(bi(20), remaining)

	req.NoError(r.Consume(c, hash, bi(2), bi(20)))
	remaining, err = r.RemainingUnits(c, hash, bi(20))
	req.NoError(err)
	req.Equal(bi(18), remaining)

	err = r.Consume(c, hash, bi(19), bi(20))
	req.True(errors.Is(err, domain.ErrQuantityExceeded))

	req.NoError(r.Consume(c, hash, bi(18), bi(20)))
	remaining, err = r.RemainingUnits(c, hash, bi(20))
	req.NoError(err)
	// a stored zero is permanent exhaustion, not absence
	req.Equal(bi(0), remaining)
}

func TestStateCheckpointRevert(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	r := NewStateRepo()

	req.NoError(r.Consume(c, hash, bi(5), bi(20)))

	cp := r.Checkpoint()
	req.NoError(r.Consume(c, hash, bi(10), bi(20)))
	req.NoError(r.Cancel(c, maker, "1"))
	r.Revert(cp)

	remaining, err := r.RemainingUnits(c, hash, bi(20))
	req.NoError(err)
	req.Equal(bi(15), remaining)

	cancelled, err := r.IsCancelled(c, maker, "1")
	req.NoError(err)
	req.False(cancelled)

	// reverting past the first consume drops the record back to absence
	r.Revert(0)
	remaining, err = r.RemainingUnits(c, hash, bi(20))
	req.NoError(err)
	req.Equal(bi(20), remaining)
}

func TestCancelRevertKeepsPriorCancellation(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()
	r := NewStateRepo()

	req.NoError(r.Cancel(c, maker, "1"))

	cp := r.Checkpoint()
	// re-cancelling inside the window journals nothing
	req.NoError(r.Cancel(c, maker, "1"))
	r.Revert(cp)

	cancelled, err := r.IsCancelled(c, maker, "1")
	req.NoError(err)
	req.True(cancelled)
}
