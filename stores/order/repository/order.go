package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/log"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/order"
	"github.com/x-xyz/goexchange/service/query"
)

type orderRepo struct {
	q query.Mongo
}

// NewOrderRepo creates the mongo-backed order book repository
func NewOrderRepo(q query.Mongo) order.Repo {
	return &orderRepo{q}
}

func makeQuery(opts order.FindAllOptions) bson.M {
	qry := bson.M{}
	if opts.ChainId != nil {
		qry["chainId"] = *opts.ChainId
	}
	if opts.OrderHash != nil {
		qry["orderHash"] = *opts.OrderHash
	}
	if opts.Maker != nil {
		qry["maker"] = *opts.Maker
	}
	if opts.Direction != nil {
		qry["direction"] = *opts.Direction
	}
	if opts.AssetContract != nil {
		qry["assetContract"] = *opts.AssetContract
	}
	if opts.Nonce != nil {
		qry["nonce"] = *opts.Nonce
	}
	if opts.IsCancelled != nil {
		qry["isCancelled"] = *opts.IsCancelled
	}
	// both bounds share one range document so neither overwrites the other
	expiry := bson.M{}
	if opts.ExpiryGT != nil {
		expiry["$gt"] = opts.ExpiryGT.Unix()
	}
	if opts.ExpiryLT != nil {
		expiry["$lt"] = opts.ExpiryLT.Unix()
	}
	if len(expiry) > 0 {
		qry["expiryUnix"] = expiry
	}
	return qry
}

func (im *orderRepo) FindAll(c ctx.Ctx, optFns ...order.FindAllOptionsFunc) ([]*order.Order, error) {
	opts, err := order.GetFindAllOptions(optFns...)
	if err != nil {
		return nil, err
	}

	offset := int32(0)
	limit := int32(0)
	sort := ""
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if opts.SortBy != nil {
		sort = *opts.SortBy
		if opts.SortDir != nil && *opts.SortDir == domain.SortDirDesc {
			sort = "-" + sort
		}
	}

	qry := makeQuery(opts)
	res := []*order.Order{}
	if err := im.q.Search(c, domain.TableOrders, int(offset), int(limit), sort, qry, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}
	return res, nil
}

func (im *orderRepo) Count(c ctx.Ctx, optFns ...order.FindAllOptionsFunc) (int, error) {
	opts, err := order.GetFindAllOptions(optFns...)
	if err != nil {
		return 0, err
	}

	qry := makeQuery(opts)
	cnt, err := im.q.Count(c, domain.TableOrders, qry)
	if err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Count")
		return 0, err
	}
	return cnt, nil
}

func (im *orderRepo) FindOne(c ctx.Ctx, id order.Id) (*order.Order, error) {
	res := &order.Order{}
	if err := im.q.FindOne(c, domain.TableOrders, id, res); err != nil {
		if err == query.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to q.FindOne")
		return nil, err
	}
	return res, nil
}

func (im *orderRepo) Upsert(c ctx.Ctx, o *order.Order) error {
	exp, err := o.ExpiryTime()
	if err != nil {
		return err
	}
	o.ExpiryUnix = exp.Unix()

	if err := im.q.Upsert(c, domain.TableOrders, o.ToId(), o); err != nil {
		c.WithFields(log.Fields{
			"err":       err,
			"orderHash": o.OrderHash,
		}).Error("failed to q.Upsert")
		return err
	}
	return nil
}

func (im *orderRepo) Update(c ctx.Ctx, id order.Id, patchable order.Patchable) error {
	if err := im.q.Patch(c, domain.TableOrders, id, patchable); err != nil {
		if err == query.ErrNotFound {
			return domain.ErrNotFound
		}
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to q.Patch")
		return err
	}
	return nil
}
