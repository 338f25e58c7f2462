package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metaloom/loom/internal/agent"
	"github.com/metaloom/loom/internal/config"
	"github.com/metaloom/loom/internal/mail"
	"github.com/metaloom/loom/internal/space"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a two-agent message-passing demo",
	Long: `Wire two agents into a shared space and pass messages between
them until the space goes quiet, then print each agent's status
registry and the router's drop counters.

The demo also routes one message at a nonexistent agent to show
drop-and-count behavior.`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	weaver := agent.New("weaver", agent.WithMailbox(
		mail.NewMailbox(mail.WithPreempt(cfg.Mail.PreemptOrdering))))
	scribe := agent.New("scribe", agent.WithMailbox(
		mail.NewMailbox(mail.WithPreempt(cfg.Mail.PreemptOrdering))))

	s := space.New(space.WithDeadLetterLimit(cfg.Space.DeadLetterLimit))
	s.AddAgent(weaver)
	s.AddAgent(scribe)

	// weaver greets whoever the payload names and asks scribe to record it.
	weaver.RegisterFunc("greet", func(ctx context.Context, payload any) (any, error) {
		name := "world"
		if data, ok := payload.(map[string]any); ok {
			if n, ok := data["name"].(string); ok {
				name = n
			}
		}
		greeting := fmt.Sprintf("hello, %s", name)

		reply := mail.NewMessage("record", "scribe")
		reply.Title = "greeting"
		reply.Data = map[string]any{"text": greeting}
		weaver.Send(reply)
		return greeting, nil
	})

	var recorded []string
	scribe.RegisterFunc("record", func(ctx context.Context, payload any) (any, error) {
		if data, ok := payload.(map[string]any); ok {
			if text, ok := data["text"].(string); ok {
				recorded = append(recorded, text)
			}
		}
		return len(recorded), nil
	})

	// Seed the space: two greetings and one message nobody can receive.
	first := mail.NewMessage("greet", "weaver")
	first.Data = map[string]any{"name": "loom"}
	s.Route(first)

	second := mail.NewMessage("greet", "weaver")
	second.Data = map[string]any{"name": "space"}
	s.Route(second)

	lost := mail.NewMessage("greet", "nobody")
	s.Route(lost)

	sweeps, err := s.Run(ctx, 10)
	if err != nil {
		return fmt.Errorf("running space: %w", err)
	}

	fmt.Printf("Space quiet after %d sweeps across %d agents\n\n", sweeps, s.Count())

	for _, line := range recorded {
		fmt.Printf("%s scribe recorded: %q\n", color.GreenString("✓"), line)
	}
	fmt.Println()

	for _, id := range s.AgentIDs() {
		a, ok := s.Agent(id)
		if !ok {
			continue
		}
		fmt.Printf("%s status:\n", color.CyanString(id))
		reg := a.State()
		names := reg.Names()
		sort.Strings(names)
		for _, name := range names {
			item, ok := reg.Get(name)
			if !ok {
				continue
			}
			fmt.Printf("  %-8s %s\n", name, item.String())
		}
	}

	fmt.Printf("\nDropped messages: %d\n", s.Dropped())
	for _, m := range s.DeadLetters() {
		fmt.Printf("  %s dead letter: %s\n", color.YellowString("⚠"), m.String())
	}
	return nil
}
