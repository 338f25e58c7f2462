// Package space implements the central message router. A Space owns
// the set of known agents, drains their outbound queues, and delivers
// each message to the addressed agent's inbound queue. Messages to
// unknown agents are dropped by policy, but counted and inspectable.
package space

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/metaloom/loom/internal/agent"
	"github.com/metaloom/loom/internal/logging"
	"github.com/metaloom/loom/internal/mail"
)

// DefaultDeadLetterLimit is how many dropped messages are retained
// for inspection.
const DefaultDeadLetterLimit = 16

// Space routes point-to-point messages between registered agents.
// It implements mail.Transport.
type Space struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent
	order  []string

	dropped     atomic.Uint64
	deadLetters []*mail.Message
	deadLimit   int

	logger *logging.DebugLogger
}

var _ mail.Transport = (*Space)(nil)

// Option configures a Space.
type Option func(*Space)

// WithLogger attaches a debug logger for routing decisions.
func WithLogger(l *logging.DebugLogger) Option {
	return func(s *Space) {
		s.logger = l
	}
}

// WithDeadLetterLimit sets how many dropped messages are retained.
// Zero disables retention; drops are still counted.
func WithDeadLetterLimit(n int) Option {
	return func(s *Space) {
		s.deadLimit = n
	}
}

// New creates an empty Space.
func New(opts ...Option) *Space {
	s := &Space{
		agents:    make(map[string]*agent.Agent),
		deadLimit: DefaultDeadLetterLimit,
		logger:    &logging.DebugLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddAgent registers an agent by its identifier. Re-registering the
// same identifier replaces the prior agent; the position in
// registration order is kept from the first registration.
func (s *Space) AddAgent(a *agent.Agent) {
	if a == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[a.ID()]; !exists {
		s.order = append(s.order, a.ID())
	}
	s.agents[a.ID()] = a
	s.logger.Log("space: registered agent %s", a.ID())
}

// RemoveAgent drops an agent from the registry. Its queued messages
// stay with the agent.
func (s *Space) RemoveAgent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[id]; !exists {
		return
	}
	delete(s.agents, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Agent looks up a registered agent by identifier.
func (s *Space) Agent(id string) (*agent.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	return a, ok
}

// AgentIDs returns the registered identifiers in registration order.
// The order is an implementation detail, not a delivery contract.
func (s *Space) AgentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Count returns the number of registered agents.
func (s *Space) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// Route delivers a message to the addressed agent's inbound queue.
// A message to an unknown target is dropped: counted, retained up to
// the dead-letter limit, and never retried.
func (s *Space) Route(m *mail.Message) {
	if m == nil {
		return
	}
	s.mu.RLock()
	target, ok := s.agents[m.Target]
	s.mu.RUnlock()

	if !ok {
		s.drop(m)
		return
	}
	target.EnqueueInbound(m)
	s.logger.Log("space: routed %s -> %s (action=%s)", m.Sender, m.Target, m.Action)
}

func (s *Space) drop(m *mail.Message) {
	s.dropped.Add(1)
	s.logger.Log("space: dropped message for unknown target %q (action=%s)", m.Target, m.Action)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deadLimit <= 0 {
		return
	}
	s.deadLetters = append(s.deadLetters, m)
	if len(s.deadLetters) > s.deadLimit {
		s.deadLetters = s.deadLetters[len(s.deadLetters)-s.deadLimit:]
	}
}

// Dropped returns the total number of unroutable messages dropped.
func (s *Space) Dropped() uint64 {
	return s.dropped.Load()
}

// DeadLetters returns the most recently dropped messages, oldest first.
func (s *Space) DeadLetters() []*mail.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*mail.Message, len(s.deadLetters))
	copy(out, s.deadLetters)
	return out
}

// DrainAll sweeps every agent's outbound queue once, in registration
// order, routing each message. This is a point-in-time sweep:
// messages enqueued during the sweep are delivered on the next one.
// Returns the number of messages routed or dropped.
func (s *Space) DrainAll() int {
	moved := 0
	for _, id := range s.AgentIDs() {
		a, ok := s.Agent(id)
		if !ok {
			continue
		}
		for _, m := range a.Mailbox().Outbound().Drain() {
			s.Route(m)
			moved++
		}
	}
	return moved
}

// RunAll calls ProcessInbox on every agent once, in registration
// order. Per-agent errors are collected, not fatal to the sweep.
func (s *Space) RunAll(ctx context.Context) (int, error) {
	processed := 0
	var firstErr error
	for _, id := range s.AgentIDs() {
		a, ok := s.Agent(id)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		n, err := a.ProcessInbox(ctx)
		processed += n
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("agent %s: %w", id, err)
		}
	}
	return processed, firstErr
}

// Run alternates DrainAll and RunAll until no messages move or the
// sweep budget is exhausted. Returns the number of sweeps executed.
func (s *Space) Run(ctx context.Context, maxSweeps int) (int, error) {
	sweeps := 0
	for maxSweeps <= 0 || sweeps < maxSweeps {
		if err := ctx.Err(); err != nil {
			return sweeps, err
		}
		moved := s.DrainAll()
		processed, err := s.RunAll(ctx)
		sweeps++
		if err != nil {
			return sweeps, err
		}
		if moved == 0 && processed == 0 {
			break
		}
	}
	return sweeps, nil
}

// Send implements mail.Transport: it addresses the message to the
// named agent and routes it. Unknown agents are an error here, unlike
// Route, because a transport caller asked for delivery explicitly.
func (s *Space) Send(agentID string, m *mail.Message) error {
	s.mu.RLock()
	target, ok := s.agents[agentID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to unknown agent %q", agentID)
	}
	m.Target = agentID
	target.EnqueueInbound(m)
	return nil
}

// Receive implements mail.Transport: it pops the next inbound message
// for the named agent.
func (s *Space) Receive(agentID string) (*mail.Message, bool) {
	s.mu.RLock()
	target, ok := s.agents[agentID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return target.Mailbox().Inbound().Pop()
}

// String describes the space for logs.
func (s *Space) String() string {
	return fmt.Sprintf("Space(%d agents)", s.Count())
}
