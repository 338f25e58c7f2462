// Package agent implements the message-consuming worker of the
// coordination core. An agent owns a status registry, a mailbox, and
// a set of named runners; it consumes inbound messages and dispatches
// each to the runner named by the message's action.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/metaloom/loom/internal/mail"
	"github.com/metaloom/loom/internal/runner"
	"github.com/metaloom/loom/internal/status"
)

// ErrUnknownAction indicates a dispatch against an action no runner
// is registered for. This is a programming error at the call site,
// not a recoverable condition.
var ErrUnknownAction = errors.New("unknown action")

// Agent consumes inbound messages and dispatches them to registered
// runners, reporting lifecycle transitions through its status registry.
type Agent struct {
	id      string
	state   *status.Registry
	mailbox *mail.Mailbox

	mu      sync.RWMutex
	runners map[string]runner.Runner
}

// Option configures an Agent.
type Option func(*Agent)

// WithMailbox replaces the agent's default mailbox, for callers that
// need preempt ordering or a shared queue.
func WithMailbox(mb *mail.Mailbox) Option {
	return func(a *Agent) {
		a.mailbox = mb
	}
}

// New creates an agent with the given identifier. The agent's own
// status entry starts idle.
func New(id string, opts ...Option) *Agent {
	a := &Agent{
		id:      id,
		state:   status.NewRegistry(),
		mailbox: mail.NewMailbox(),
		runners: make(map[string]runner.Runner),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.state.Add(id, status.PhaseIdle, nil)
	return a
}

// ID returns the agent's identifier.
func (a *Agent) ID() string {
	return a.id
}

// State returns the agent's status registry.
func (a *Agent) State() *status.Registry {
	return a.state
}

// Mailbox returns the agent's mailbox.
func (a *Agent) Mailbox() *mail.Mailbox {
	return a.mailbox
}

// Register binds a runner under its name. Re-registering a name
// replaces the prior runner. The runner's own status item is placed
// in the registry, so dispatch transitions recorded by the runner are
// visible through the agent's state.
func (a *Agent) Register(r runner.Runner) {
	a.mu.Lock()
	a.runners[r.Name()] = r
	a.mu.Unlock()
	a.state.Put(r.Status())
}

// RegisterFunc is shorthand for registering a plain function runner.
func (a *Agent) RegisterFunc(name string, fn func(ctx context.Context, payload any) (any, error)) {
	a.Register(runner.NewFunc(name, fn))
}

// Remove unbinds a runner and drops its status entry.
func (a *Agent) Remove(name string) {
	a.mu.Lock()
	delete(a.runners, name)
	a.mu.Unlock()
	a.state.Remove(name)
}

// Runner looks up a registered runner by name.
func (a *Agent) Runner(name string) (runner.Runner, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.runners[name]
	return r, ok
}

// RunnerNames returns the registered action names, unordered.
func (a *Agent) RunnerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.runners))
	for name := range a.runners {
		names = append(names, name)
	}
	return names
}

// Dispatch invokes the runner registered under action with the
// payload. The agent's own status entry moves through
// processing(action) to success or error(message); runner errors are
// recorded and propagated, never swallowed. An unregistered action
// fails with ErrUnknownAction without touching agent state.
func (a *Agent) Dispatch(ctx context.Context, action string, payload any) (any, error) {
	r, ok := a.Runner(action)
	if !ok {
		return nil, fmt.Errorf("agent %s: %w: %q", a.id, ErrUnknownAction, action)
	}

	a.state.Set(a.id, status.PhaseProcessing, action)
	out, err := r.Invoke(ctx, payload)
	if err != nil {
		err = fmt.Errorf("dispatch %s: %w", action, err)
		a.state.SetError(a.id, err)
		return nil, err
	}
	a.state.SetSuccess(a.id)
	return out, nil
}

// EnqueueInbound places a message on the agent's inbound queue.
func (a *Agent) EnqueueInbound(m *mail.Message) {
	a.mailbox.Inbound().Push(m)
}

// DrainInbound removes and returns every queued inbound message.
func (a *Agent) DrainInbound() []*mail.Message {
	return a.mailbox.Inbound().Drain()
}

// Send stamps the message with the agent's identifier and places it
// on the outbound queue for the router to pick up.
func (a *Agent) Send(m *mail.Message) {
	if m == nil {
		return
	}
	m.Sender = a.id
	a.mailbox.Outbound().Push(m)
}

// ProcessInbox pops the inbound queue until empty, dispatching each
// message's action with its data payload. Messages are isolated from
// each other: a failing message is recorded against the agent's
// status entry and the sweep continues. Returns the number of
// messages processed and the first error observed, kept for
// observability rather than control flow.
func (a *Agent) ProcessInbox(ctx context.Context) (int, error) {
	processed := 0
	var firstErr error
	for {
		m, ok := a.mailbox.Inbound().Pop()
		if !ok {
			return processed, firstErr
		}
		m.MarkRead()
		_, err := a.Dispatch(ctx, m.Action, m.Data)
		processed++
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
}
