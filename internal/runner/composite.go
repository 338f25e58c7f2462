package runner

import (
	"context"
	"sync"
)

// BranchCase pairs a condition with the runner to invoke when the
// condition holds for the payload.
type BranchCase struct {
	When func(payload any) bool
	Run  Runner
}

// Branch invokes the first case whose condition matches the payload.
// No matching case is an error (ErrNoBranch).
type Branch struct {
	tracked
	cases []BranchCase
}

// NewBranch creates a branch runner over the given cases.
func NewBranch(name string, cases ...BranchCase) *Branch {
	return &Branch{tracked: newTracked(name), cases: cases}
}

// Invoke selects and runs the first matching case.
func (b *Branch) Invoke(ctx context.Context, payload any) (any, error) {
	return b.run(ctx, func() (any, error) {
		for _, c := range b.cases {
			if c.When == nil || !c.When(payload) {
				continue
			}
			out, err := c.Run.Invoke(ctx, payload)
			if err != nil {
				return nil, errInvoke(b.name, err)
			}
			return out, nil
		}
		return nil, ErrNoBranch
	})
}

// Sequence invokes runners in order, feeding each output to the next.
type Sequence struct {
	tracked
	steps []Runner
}

// NewSequence creates a sequence runner over the given steps.
func NewSequence(name string, steps ...Runner) *Sequence {
	return &Sequence{tracked: newTracked(name), steps: steps}
}

// Invoke threads the payload through every step in order.
func (s *Sequence) Invoke(ctx context.Context, payload any) (any, error) {
	return s.run(ctx, func() (any, error) {
		out := payload
		for _, step := range s.steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var err error
			out, err = step.Invoke(ctx, out)
			if err != nil {
				return nil, errInvoke(s.name, err)
			}
		}
		return out, nil
	})
}

// Parallel invokes named runners concurrently against the same
// payload and collects their outputs by name. The first error wins;
// remaining runners still finish.
type Parallel struct {
	tracked
	runners map[string]Runner
}

// NewParallel creates a parallel runner over the named runners.
func NewParallel(name string, runners map[string]Runner) *Parallel {
	return &Parallel{tracked: newTracked(name), runners: runners}
}

// Invoke runs every child concurrently and returns a map of outputs
// keyed the same way as the child runners.
func (p *Parallel) Invoke(ctx context.Context, payload any) (any, error) {
	result, err := p.run(ctx, func() (any, error) {
		var (
			mu       sync.Mutex
			wg       sync.WaitGroup
			outputs  = make(map[string]any, len(p.runners))
			firstErr error
		)
		for name, child := range p.runners {
			wg.Add(1)
			go func(name string, child Runner) {
				defer wg.Done()
				out, err := child.Invoke(ctx, payload)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = errInvoke(p.name, err)
					}
					return
				}
				outputs[name] = out
			}(name, child)
		}
		wg.Wait()
		if firstErr != nil {
			return nil, firstErr
		}
		return outputs, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Fallback invokes a primary runner and, on failure, each fallback in
// order until one succeeds. All failing is an error wrapping the last
// failure.
type Fallback struct {
	tracked
	primary   Runner
	fallbacks []Runner
}

// NewFallback creates a fallback runner.
func NewFallback(name string, primary Runner, fallbacks ...Runner) *Fallback {
	return &Fallback{tracked: newTracked(name), primary: primary, fallbacks: fallbacks}
}

// Invoke tries primary then each fallback until one succeeds.
func (f *Fallback) Invoke(ctx context.Context, payload any) (any, error) {
	return f.run(ctx, func() (any, error) {
		out, err := f.primary.Invoke(ctx, payload)
		if err == nil {
			return out, nil
		}
		for _, fb := range f.fallbacks {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			out, err = fb.Invoke(ctx, payload)
			if err == nil {
				return out, nil
			}
		}
		return nil, errInvoke(f.name, err)
	})
}
