package registry

import (
	"github.com/x-xyz/goexchange/base/ctx"
	"github.com/x-xyz/goexchange/domain"
)

// Selector identifies an externally invocable operation
type Selector string

// NoneName is the "no implementation" sentinel. Rolling back to it always
// succeeds, even for a selector that was never extended.
const NoneName = ""

// Feature is an implementation of one operation. Implementations are
// compared by Name during rollback.
type Feature interface {
	Name() string
	Handle(c ctx.Ctx, payload []byte) ([]byte, error)
}

type HandlerFunc func(c ctx.Ctx, payload []byte) ([]byte, error)

type feature struct {
	name string
	fn   HandlerFunc
}

func (f *feature) Name() string { return f.name }

func (f *feature) Handle(c ctx.Ctx, payload []byte) ([]byte, error) {
	return f.fn(c, payload)
}

// NewFeature wraps a handler func into a named Feature
func NewFeature(name string, fn HandlerFunc) Feature {
	return &feature{name: name, fn: fn}
}

type Repo interface {
	// Get returns the current implementation, nil when none
	Get(c ctx.Ctx, sel Selector) (Feature, error)

	// Extend pushes the current implementation (even none) onto the
	// selector's history and installs f
	Extend(c ctx.Ctx, sel Selector, f Feature) error

	// Rollback pops history entries, discarding each, until one named
	// `target` is found and reinstalled. Rolling back to NoneName always
	// succeeds and leaves history untouched.
	Rollback(c ctx.Ctx, sel Selector, target string) error

	RollbackLength(c ctx.Ctx, sel Selector) (int, error)
}

// UseCase gates mutation behind the admin allowlist and dispatches calls to
// the current implementation of a selector
type UseCase interface {
	Get(c ctx.Ctx, sel Selector) (Feature, error)
	Extend(c ctx.Ctx, caller domain.Address, sel Selector, f Feature) error
	Rollback(c ctx.Ctx, caller domain.Address, sel Selector, target string) error
	RollbackLength(c ctx.Ctx, sel Selector) (int, error)
	Dispatch(c ctx.Ctx, sel Selector, payload []byte) ([]byte, error)
}
