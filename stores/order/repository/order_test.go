package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/order"
	"github.com/x-xyz/goexchange/service/query/mocks"
)

func TestMakeQueryExpiryRange(t *testing.T) {
	req := require.New(t)

	lower := time.Unix(1700000000, 0)
	upper := time.Unix(1700003600, 0)

	opts, err := order.GetFindAllOptions(
		order.WithExpiryGT(lower),
		order.WithExpiryLT(upper),
	)
	req.NoError(err)

	qry := makeQuery(opts)
	// both bounds must land in one range document
	req.Equal(bson.M{
		"$gt": lower.Unix(),
		"$lt": upper.Unix(),
	}, qry["expiryUnix"])
}

func TestMakeQueryExpirySingleBound(t *testing.T) {
	req := require.New(t)

	lower := time.Unix(1700000000, 0)
	opts, err := order.GetFindAllOptions(order.WithExpiryGT(lower))
	req.NoError(err)

	qry := makeQuery(opts)
	req.Equal(bson.M{"$gt": lower.Unix()}, qry["expiryUnix"])
}

func TestUpsertSetsExpiryUnix(t *testing.T) {
	req := require.New(t)
	c := bCtx.Background()

	q := &mocks.Mongo{}
	q.On("Upsert", mock.Anything, domain.TableOrders, mock.Anything, mock.Anything).Return(nil)
	repo := NewOrderRepo(q)

	o := &order.Order{
		ChainId:   1,
		OrderHash: "0xabc",
		Expiry:    "1700003600",
	}
	req.NoError(repo.Upsert(c, o))
	req.Equal(int64(1700003600), o.ExpiryUnix)
	q.AssertExpectations(t)

	// a malformed expiry never reaches the store
	bad := &order.Order{ChainId: 1, OrderHash: "0xdef", Expiry: "soon"}
	req.Error(repo.Upsert(c, bad))
	q.AssertNumberOfCalls(t, "Upsert", 1)
}
