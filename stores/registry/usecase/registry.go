package usecase

import (
	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/base/log"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/registry"
	"golang.org/x/xerrors"
)

type RegistryUseCaseCfg struct {
	Repo registry.Repo
	// AdminAddresses may extend and roll back selectors
	AdminAddresses []domain.Address
}

type impl struct {
	repo   registry.Repo
	admins map[domain.Address]struct{}
}

func New(cfg *RegistryUseCaseCfg) registry.UseCase {
	admins := map[domain.Address]struct{}{}
	for _, addr := range cfg.AdminAddresses {
		admins[addr.ToLower()] = struct{}{}
	}
	return &impl{
		repo:   cfg.Repo,
		admins: admins,
	}
}

func (im *impl) isAdmin(addr domain.Address) bool {
	_, ok := im.admins[addr.ToLower()]
	return ok
}

func (im *impl) Get(c bCtx.Ctx, sel registry.Selector) (registry.Feature, error) {
	return im.repo.Get(c, sel)
}

func (im *impl) Extend(c bCtx.Ctx, caller domain.Address, sel registry.Selector, f registry.Feature) error {
	if !im.isAdmin(caller) {
		return xerrors.Errorf("%s may not extend: %w", caller, domain.ErrPermissionDenied)
	}
	if err := im.repo.Extend(c, sel, f); err != nil {
		return err
	}
	c.WithFields(log.Fields{
		"selector": sel,
		"feature":  f.Name(),
	}).Info("selector extended")
	return nil
}

func (im *impl) Rollback(c bCtx.Ctx, caller domain.Address, sel registry.Selector, target string) error {
	if !im.isAdmin(caller) {
		return xerrors.Errorf("%s may not roll back: %w", caller, domain.ErrPermissionDenied)
	}
	if err := im.repo.Rollback(c, sel, target); err != nil {
		c.WithFields(log.Fields{
			"err":      err,
			"selector": sel,
			"target":   target,
		}).Warn("rollback refused")
		return err
	}
	c.WithFields(log.Fields{
		"selector": sel,
		"target":   target,
	}).Info("selector rolled back")
	return nil
}

func (im *impl) RollbackLength(c bCtx.Ctx, sel registry.Selector) (int, error) {
	return im.repo.RollbackLength(c, sel)
}

// Dispatch invokes the current implementation of a selector
func (im *impl) Dispatch(c bCtx.Ctx, sel registry.Selector, payload []byte) ([]byte, error) {
	f, err := im.repo.Get(c, sel)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, xerrors.Errorf("selector %q has no implementation: %w", sel, domain.ErrNotFound)
	}
	return f.Handle(c, payload)
}
