// Package runner defines the invocable units of behavior an agent can
// dispatch to. A Runner is the narrow seam between the coordination
// core and whatever actually does the work (a function, a tool call,
// a model invocation); the core never looks behind the interface.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/metaloom/loom/internal/status"
)

// ErrNoBranch is returned by a branch runner when no condition matches.
var ErrNoBranch = errors.New("no branch condition matched")

// Runner is a named unit of invocable behavior. Invoke records
// running/success/error transitions on the runner's status item as a
// side effect; errors are still propagated to the caller.
type Runner interface {
	// Name returns the runner's registered name.
	Name() string
	// Invoke executes the runner against the payload.
	Invoke(ctx context.Context, payload any) (any, error)
	// Status returns the runner's own status item.
	Status() *status.Item
}

// tracked carries the name and status item shared by every variant.
type tracked struct {
	name   string
	status *status.Item
}

func newTracked(name string) tracked {
	return tracked{
		name:   name,
		status: status.NewItem(name, status.PhasePending, nil),
	}
}

// Name returns the runner's registered name.
func (t *tracked) Name() string {
	return t.name
}

// Status returns the runner's status item.
func (t *tracked) Status() *status.Item {
	return t.status
}

// run wraps fn with the running/success/error status protocol.
func (t *tracked) run(ctx context.Context, fn func() (any, error)) (any, error) {
	t.status.Set(status.PhaseRunning, nil)
	if err := ctx.Err(); err != nil {
		t.status.Set(status.PhaseCancelled, err.Error())
		return nil, err
	}
	out, err := fn()
	if err != nil {
		t.status.Set(status.PhaseError, err.Error())
		return nil, err
	}
	t.status.Set(status.PhaseSuccess, nil)
	return out, nil
}

// Base is a configured no-op runner: it returns its payload
// unchanged. It exists as the default stand-in for an external
// activity that has not been wired up yet.
type Base struct {
	tracked
	config map[string]any
}

// NewBase creates a base runner with the given configuration.
func NewBase(name string, config map[string]any) *Base {
	return &Base{tracked: newTracked(name), config: config}
}

// Config returns the runner's configuration.
func (b *Base) Config() map[string]any {
	return b.config
}

// Invoke returns the payload unchanged.
func (b *Base) Invoke(ctx context.Context, payload any) (any, error) {
	return b.run(ctx, func() (any, error) {
		return payload, nil
	})
}

// Func wraps a plain function as a runner.
type Func struct {
	tracked
	fn func(ctx context.Context, payload any) (any, error)
}

// NewFunc creates a runner backed by fn.
func NewFunc(name string, fn func(ctx context.Context, payload any) (any, error)) *Func {
	return &Func{tracked: newTracked(name), fn: fn}
}

// Invoke calls the wrapped function.
func (f *Func) Invoke(ctx context.Context, payload any) (any, error) {
	return f.run(ctx, func() (any, error) {
		return f.fn(ctx, payload)
	})
}

// Passthrough returns its payload unchanged, with no configuration.
type Passthrough struct {
	tracked
}

// NewPassthrough creates a passthrough runner.
func NewPassthrough(name string) *Passthrough {
	return &Passthrough{tracked: newTracked(name)}
}

// Invoke returns the payload unchanged.
func (p *Passthrough) Invoke(ctx context.Context, payload any) (any, error) {
	return p.run(ctx, func() (any, error) {
		return payload, nil
	})
}

// errInvoke wraps a child runner failure with the parent's name.
func errInvoke(parent string, err error) error {
	return fmt.Errorf("runner %s: %w", parent, err)
}
