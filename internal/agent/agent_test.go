package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/metaloom/loom/internal/mail"
	"github.com/metaloom/loom/internal/runner"
	"github.com/metaloom/loom/internal/status"
)

func TestNew_StartsIdle(t *testing.T) {
	a := New("worker")

	it, ok := a.State().Get("worker")
	if !ok {
		t.Fatal("agent should have its own status entry")
	}
	if it.Phase() != status.PhaseIdle {
		t.Errorf("initial phase = %q, want idle", it.Phase())
	}
}

func TestRegister_AddsStatusEntry(t *testing.T) {
	a := New("worker")
	a.RegisterFunc("greet", func(_ context.Context, p any) (any, error) {
		return "hi " + p.(string), nil
	})

	if _, ok := a.Runner("greet"); !ok {
		t.Error("runner should be registered under its name")
	}
	if _, ok := a.State().Get("greet"); !ok {
		t.Error("registering a runner should add a status entry for it")
	}
}

func TestRegister_RunnerEntryTracksDispatches(t *testing.T) {
	a := New("worker")
	a.RegisterFunc("greet", func(_ context.Context, _ any) (any, error) {
		return "hi", nil
	})
	a.RegisterFunc("fail", func(_ context.Context, _ any) (any, error) {
		return nil, errors.New("boom")
	})

	if _, err := a.Dispatch(context.Background(), "greet", nil); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	it, ok := a.State().Get("greet")
	if !ok {
		t.Fatal("no registry entry for runner")
	}
	// The registry holds the runner's own item, so the entry must
	// reflect the dispatch outcome rather than stay pending.
	if it.Phase() != status.PhaseSuccess {
		t.Errorf("runner entry phase = %q after dispatch, want success", it.Phase())
	}

	a.Dispatch(context.Background(), "fail", nil)
	it, _ = a.State().Get("fail")
	if it.Phase() != status.PhaseError {
		t.Errorf("runner entry phase = %q after failing dispatch, want error", it.Phase())
	}
}

func TestRegister_ReplacesSameName(t *testing.T) {
	a := New("worker")
	a.RegisterFunc("job", func(_ context.Context, _ any) (any, error) { return 1, nil })
	a.RegisterFunc("job", func(_ context.Context, _ any) (any, error) { return 2, nil })

	if got := len(a.RunnerNames()); got != 1 {
		t.Fatalf("registered %d runners, want 1 (same name replaces)", got)
	}
	out, err := a.Dispatch(context.Background(), "job", nil)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if out != 2 {
		t.Errorf("Dispatch() = %v, want the replacement runner's output", out)
	}
}

func TestRemove(t *testing.T) {
	a := New("worker")
	a.Register(runner.NewPassthrough("job"))
	a.Remove("job")

	if _, ok := a.Runner("job"); ok {
		t.Error("removed runner should not resolve")
	}
	if _, ok := a.State().Get("job"); ok {
		t.Error("removing a runner should drop its status entry")
	}
}

func TestDispatch_Success(t *testing.T) {
	a := New("worker")
	a.RegisterFunc("double", func(_ context.Context, p any) (any, error) {
		return p.(int) * 2, nil
	})

	out, err := a.Dispatch(context.Background(), "double", 4)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if out != 8 {
		t.Errorf("Dispatch() = %v, want 8", out)
	}

	it, _ := a.State().Get("worker")
	if it.Phase() != status.PhaseSuccess {
		t.Errorf("agent phase = %q, want success", it.Phase())
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	a := New("worker")

	_, err := a.Dispatch(context.Background(), "missing", nil)
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Dispatch error = %v, want ErrUnknownAction", err)
	}

	// Agent state is untouched by an unknown-action fault.
	it, _ := a.State().Get("worker")
	if it.Phase() != status.PhaseIdle {
		t.Errorf("agent phase = %q, want idle after unknown action", it.Phase())
	}
}

func TestDispatch_RunnerErrorRecordedAndPropagated(t *testing.T) {
	boom := errors.New("boom")
	a := New("worker")
	a.RegisterFunc("fail", func(_ context.Context, _ any) (any, error) {
		return nil, boom
	})

	_, err := a.Dispatch(context.Background(), "fail", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Dispatch error = %v, want wrapped %v", err, boom)
	}

	it, _ := a.State().Get("worker")
	if it.Phase() != status.PhaseError {
		t.Errorf("agent phase = %q, want error", it.Phase())
	}
}

func TestDispatch_OnlyLatestOutcomeRetained(t *testing.T) {
	a := New("worker")
	a.RegisterFunc("ok", func(_ context.Context, _ any) (any, error) { return nil, nil })
	a.RegisterFunc("bad", func(_ context.Context, _ any) (any, error) { return nil, errors.New("x") })

	a.Dispatch(context.Background(), "bad", nil)
	a.Dispatch(context.Background(), "ok", nil)

	it, _ := a.State().Get("worker")
	if it.Phase() != status.PhaseSuccess {
		t.Errorf("agent phase = %q: each dispatch overwrites the single entry", it.Phase())
	}
}

func TestSend_StampsSender(t *testing.T) {
	a := New("worker")
	m := mail.NewMessage("report", "boss")
	m.Sender = "spoofed"

	a.Send(m)

	out, ok := a.Mailbox().Outbound().Pop()
	if !ok {
		t.Fatal("Send should enqueue on the outbound queue")
	}
	if out.Sender != "worker" {
		t.Errorf("Sender = %q, want the sending agent's id", out.Sender)
	}
}

func TestProcessInbox_FIFOWithIsolation(t *testing.T) {
	a := New("worker")
	var order []string
	a.RegisterFunc("ok", func(_ context.Context, p any) (any, error) {
		order = append(order, p.(map[string]any)["tag"].(string))
		return nil, nil
	})
	a.RegisterFunc("fail", func(_ context.Context, p any) (any, error) {
		order = append(order, p.(map[string]any)["tag"].(string))
		return nil, errors.New("boom")
	})

	for _, m := range []*mail.Message{
		newTagged("ok", "A"),
		newTagged("fail", "B"),
		newTagged("ok", "C"),
	} {
		a.EnqueueInbound(m)
	}

	processed, err := a.ProcessInbox(context.Background())
	if processed != 3 {
		t.Errorf("processed = %d, want 3 (one failing message must not stop the sweep)", processed)
	}
	if err == nil {
		t.Error("ProcessInbox should surface the first error observed")
	}
	if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "C" {
		t.Errorf("processing order = %v, want [A B C]", order)
	}
	if !a.Mailbox().Inbound().Empty() {
		t.Error("inbox should be drained")
	}
}

func TestProcessInbox_UnknownActionDoesNotStopSweep(t *testing.T) {
	a := New("worker")
	ran := false
	a.RegisterFunc("ok", func(_ context.Context, _ any) (any, error) {
		ran = true
		return nil, nil
	})

	a.EnqueueInbound(mail.NewMessage("missing", "worker"))
	a.EnqueueInbound(mail.NewMessage("ok", "worker"))

	processed, err := a.ProcessInbox(context.Background())
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("first error = %v, want ErrUnknownAction", err)
	}
	if !ran {
		t.Error("messages after an unknown action must still be processed")
	}
}

func TestProcessInbox_MarksRead(t *testing.T) {
	a := New("worker")
	a.RegisterFunc("ok", func(_ context.Context, _ any) (any, error) { return nil, nil })

	m := mail.NewMessage("ok", "worker")
	a.EnqueueInbound(m)
	a.ProcessInbox(context.Background())

	if !m.Read {
		t.Error("processed messages should be marked read")
	}
}

func TestDrainInbound(t *testing.T) {
	a := New("worker")
	a.EnqueueInbound(mail.NewMessage("a", "worker"))
	a.EnqueueInbound(mail.NewMessage("b", "worker"))

	msgs := a.DrainInbound()
	if len(msgs) != 2 {
		t.Fatalf("DrainInbound() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Action != "a" || msgs[1].Action != "b" {
		t.Errorf("drain order = [%s %s], want [a b]", msgs[0].Action, msgs[1].Action)
	}
}

func newTagged(action, tag string) *mail.Message {
	m := mail.NewMessage(action, "worker")
	m.Data = map[string]any{"tag": tag}
	return m
}
