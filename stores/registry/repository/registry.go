package repository

import (
	"sync"

	bCtx "github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
	"github.com/x-xyz/goexchange/domain/registry"
	"golang.org/x/xerrors"
)

type entry struct {
	// current implementation, nil when the selector has none
	current registry.Feature
	// history of prior implementations, oldest first; nil entries record
	// periods where the selector had none
	history []registry.Feature
}

type registryRepo struct {
	mu      sync.RWMutex
	entries map[registry.Selector]*entry
}

// NewRegistryRepo creates the in-memory feature registry
func NewRegistryRepo() registry.Repo {
	return &registryRepo{
		entries: map[registry.Selector]*entry{},
	}
}

func (im *registryRepo) getOrCreate(sel registry.Selector) *entry {
	e, ok := im.entries[sel]
	if !ok {
		e = &entry{}
		im.entries[sel] = e
	}
	return e
}

func (im *registryRepo) Get(c bCtx.Ctx, sel registry.Selector) (registry.Feature, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	if e, ok := im.entries[sel]; ok {
		return e.current, nil
	}
	return nil, nil
}

func (im *registryRepo) Extend(c bCtx.Ctx, sel registry.Selector, f registry.Feature) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	e := im.getOrCreate(sel)
	// the displaced implementation goes onto the history even when there was
	// none, so rollback can return to the empty state
	e.history = append(e.history, e.current)
	e.current = f
	return nil
}

func (im *registryRepo) Rollback(c bCtx.Ctx, sel registry.Selector, target string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	e := im.getOrCreate(sel)

	// rolling back to "none" always succeeds and discards nothing
	if target == registry.NoneName {
		e.current = nil
		return nil
	}

	for i := len(e.history) - 1; i >= 0; i-- {
		f := e.history[i]
		if f != nil && f.Name() == target {
			e.current = f
			e.history = e.history[:i]
			return nil
		}
	}
	return xerrors.Errorf("no %q in history of %q: %w", target, sel, domain.ErrRollbackTargetNotFound)
}

func (im *registryRepo) RollbackLength(c bCtx.Ctx, sel registry.Selector) (int, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	if e, ok := im.entries[sel]; ok {
		return len(e.history), nil
	}
	return 0, nil
}
