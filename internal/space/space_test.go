package space

import (
	"context"
	"errors"
	"testing"

	"github.com/metaloom/loom/internal/agent"
	"github.com/metaloom/loom/internal/mail"
)

func newEchoAgent(t *testing.T, id string) *agent.Agent {
	t.Helper()
	a := agent.New(id)
	a.RegisterFunc("echo", func(_ context.Context, p any) (any, error) {
		return p, nil
	})
	return a
}

func TestAddAgent_LastWriteWins(t *testing.T) {
	s := New()
	first := agent.New("worker")
	second := agent.New("worker")

	s.AddAgent(first)
	s.AddAgent(second)

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	got, _ := s.Agent("worker")
	if got != second {
		t.Error("re-registering an identifier must replace the prior agent")
	}
}

func TestAddAgent_OrderPreserved(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		s.AddAgent(agent.New(id))
	}
	// Replacing b keeps its original position.
	s.AddAgent(agent.New("b"))

	ids := s.AgentIDs()
	want := []string{"a", "b", "c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("AgentIDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestRemoveAgent(t *testing.T) {
	s := New()
	s.AddAgent(agent.New("a"))
	s.AddAgent(agent.New("b"))
	s.RemoveAgent("a")

	if _, ok := s.Agent("a"); ok {
		t.Error("removed agent should not resolve")
	}
	if ids := s.AgentIDs(); len(ids) != 1 || ids[0] != "b" {
		t.Errorf("AgentIDs() = %v, want [b]", ids)
	}
}

func TestRoute_DeliversToTarget(t *testing.T) {
	s := New()
	a := newEchoAgent(t, "worker")
	s.AddAgent(a)

	s.Route(mail.NewMessage("echo", "worker"))

	if got := a.Mailbox().Inbound().Len(); got != 1 {
		t.Errorf("inbound len = %d, want 1", got)
	}
}

func TestRoute_UnknownTargetDroppedSilently(t *testing.T) {
	s := New()
	known := newEchoAgent(t, "known")
	s.AddAgent(known)

	s.Route(mail.NewMessage("echo", "nobody"))

	// No panic, nothing queued on known agents.
	if got := known.Mailbox().Inbound().Len(); got != 0 {
		t.Errorf("known agent inbound len = %d, want 0", got)
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", s.Dropped())
	}
	dead := s.DeadLetters()
	if len(dead) != 1 || dead[0].Target != "nobody" {
		t.Errorf("DeadLetters() = %v, want the dropped message", dead)
	}

	// DrainAll afterwards leaves inboxes unaffected by the dropped message.
	s.DrainAll()
	if got := known.Mailbox().Inbound().Len(); got != 0 {
		t.Errorf("after DrainAll, inbound len = %d, want 0", got)
	}
}

func TestDeadLetterLimit(t *testing.T) {
	s := New(WithDeadLetterLimit(2))
	for i := 0; i < 5; i++ {
		s.Route(mail.NewMessage("echo", "nobody"))
	}

	if s.Dropped() != 5 {
		t.Errorf("Dropped() = %d, want 5", s.Dropped())
	}
	if got := len(s.DeadLetters()); got != 2 {
		t.Errorf("DeadLetters() retained %d, want 2", got)
	}
}

func TestDrainAll_MovesOutboundToInbound(t *testing.T) {
	s := New()
	sender := newEchoAgent(t, "sender")
	receiver := newEchoAgent(t, "receiver")
	s.AddAgent(sender)
	s.AddAgent(receiver)

	sender.Send(mail.NewMessage("echo", "receiver"))
	sender.Send(mail.NewMessage("echo", "receiver"))

	moved := s.DrainAll()
	if moved != 2 {
		t.Errorf("DrainAll() = %d, want 2", moved)
	}
	if got := receiver.Mailbox().Inbound().Len(); got != 2 {
		t.Errorf("receiver inbound len = %d, want 2", got)
	}
	if !sender.Mailbox().Outbound().Empty() {
		t.Error("sender outbound should be empty after DrainAll")
	}
}

func TestDrainAll_PointInTimeSweep(t *testing.T) {
	s := New()
	pinger := agent.New("pinger")
	ponger := agent.New("ponger")
	// Each pong reply is enqueued during the sweep and must wait for
	// the next one.
	ponger.RegisterFunc("ping", func(_ context.Context, _ any) (any, error) {
		ponger.Send(mail.NewMessage("pong", "pinger"))
		return nil, nil
	})
	pinger.RegisterFunc("pong", func(_ context.Context, _ any) (any, error) {
		return nil, nil
	})
	s.AddAgent(pinger)
	s.AddAgent(ponger)

	pinger.Send(mail.NewMessage("ping", "ponger"))

	s.DrainAll()
	s.RunAll(context.Background())

	// The reply sits in ponger's outbound until the next sweep.
	if got := ponger.Mailbox().Outbound().Len(); got != 1 {
		t.Fatalf("ponger outbound len = %d, want 1 (reply delivered next sweep)", got)
	}
	if got := pinger.Mailbox().Inbound().Len(); got != 0 {
		t.Fatalf("pinger inbound len = %d, want 0 before next sweep", got)
	}

	s.DrainAll()
	if got := pinger.Mailbox().Inbound().Len(); got != 1 {
		t.Errorf("pinger inbound len = %d, want 1 after next sweep", got)
	}
}

func TestRunAll_ProcessesInRegistrationOrder(t *testing.T) {
	s := New()
	var order []string
	for _, id := range []string{"c", "a", "b"} {
		id := id
		ag := agent.New(id)
		ag.RegisterFunc("note", func(_ context.Context, _ any) (any, error) {
			order = append(order, id)
			return nil, nil
		})
		ag.EnqueueInbound(mail.NewMessage("note", id))
		s.AddAgent(ag)
	}

	if _, err := s.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("processing order = %v, want %v", order, want)
			break
		}
	}
}

func TestRunAll_CollectsFirstError(t *testing.T) {
	s := New()
	bad := agent.New("bad")
	bad.RegisterFunc("job", func(_ context.Context, _ any) (any, error) {
		return nil, errors.New("boom")
	})
	bad.EnqueueInbound(mail.NewMessage("job", "bad"))

	good := newEchoAgent(t, "good")
	good.EnqueueInbound(mail.NewMessage("echo", "good"))

	s.AddAgent(bad)
	s.AddAgent(good)

	processed, err := s.RunAll(context.Background())
	if processed != 2 {
		t.Errorf("processed = %d, want 2 (error must not halt the sweep)", processed)
	}
	if err == nil {
		t.Error("RunAll should surface the first agent error")
	}
}

func TestRun_ConvergesToQuiescence(t *testing.T) {
	s := New()
	pinger := agent.New("pinger")
	ponger := agent.New("ponger")
	ponger.RegisterFunc("ping", func(_ context.Context, _ any) (any, error) {
		ponger.Send(mail.NewMessage("pong", "pinger"))
		return nil, nil
	})
	got := 0
	pinger.RegisterFunc("pong", func(_ context.Context, _ any) (any, error) {
		got++
		return nil, nil
	})
	s.AddAgent(pinger)
	s.AddAgent(ponger)

	pinger.Send(mail.NewMessage("ping", "ponger"))

	sweeps, err := s.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != 1 {
		t.Errorf("pong handled %d times, want 1", got)
	}
	if sweeps >= 10 {
		t.Errorf("Run did not converge (sweeps = %d)", sweeps)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestTransport_SendReceive(t *testing.T) {
	s := New()
	a := newEchoAgent(t, "worker")
	s.AddAgent(a)

	var tr mail.Transport = s

	if err := tr.Send("worker", mail.NewMessage("echo", "")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	m, ok := tr.Receive("worker")
	if !ok {
		t.Fatal("Receive should return the delivered message")
	}
	if m.Target != "worker" {
		t.Errorf("Target = %q, want stamped by Send", m.Target)
	}

	if err := tr.Send("nobody", mail.NewMessage("echo", "")); err == nil {
		t.Error("Send to unknown agent should fail")
	}
	if _, ok := tr.Receive("nobody"); ok {
		t.Error("Receive for unknown agent should report false")
	}
}
