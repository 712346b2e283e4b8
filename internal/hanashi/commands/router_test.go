package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bdobrica/hanashi/internal/hanashi/commands"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
)

func TestParse(t *testing.T) {
	router := commands.NewRouter("/hanashi", "/aichat")

	tests := []struct {
		input    string
		wantName string
		wantSub  string
		wantArgs []string
		wantErr  bool
	}{
		{input: "/hanashi help", wantName: "help"},
		{input: "/hanashi group enable", wantName: "group", wantSub: "enable"},
		{input: "/aichat blacklist add @bob:example.org", wantName: "blacklist", wantSub: "add", wantArgs: []string{"@bob:example.org"}},
		{input: "  /hanashi GROUP Disable  ", wantName: "group", wantSub: "disable"},
		{input: "/hanashi impression show --verbose @bob:example.org", wantName: "impression", wantSub: "show", wantArgs: []string{"--verbose", "@bob:example.org"}},
		{input: "/hanashi", wantErr: true},
		{input: "/hanashix help", wantErr: true},
		{input: "hello /hanashi help", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := router.Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", cmd)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Name != tt.wantName {
				t.Errorf("name: got %q, want %q", cmd.Name, tt.wantName)
			}
			if cmd.Subcommand != tt.wantSub {
				t.Errorf("subcommand: got %q, want %q", cmd.Subcommand, tt.wantSub)
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Fatalf("args: got %v, want %v", cmd.Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if cmd.Args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d: got %q, want %q", i, cmd.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestParse_NotACommand(t *testing.T) {
	router := commands.NewRouter("/hanashi")
	if _, err := router.Parse("just chatting"); !errors.Is(err, commands.ErrNotACommand) {
		t.Errorf("got %v, want ErrNotACommand", err)
	}
	if router.IsCommand("just chatting") {
		t.Error("IsCommand true for plain text")
	}
	if !router.IsCommand("/hanashi help") {
		t.Error("IsCommand false for a command")
	}
}

func TestRoute(t *testing.T) {
	router := commands.NewRouter("/hanashi")
	router.Register("group.enable", func(ctx context.Context, cmd *commands.Command, ev *conversation.Event) (string, error) {
		return "enabled " + ev.GroupID, nil
	})
	router.Register("help", func(ctx context.Context, cmd *commands.Command, ev *conversation.Event) (string, error) {
		return "help", nil
	})

	ev := &conversation.Event{GroupID: "!r:x"}
	got, err := router.Route(context.Background(), "/hanashi group enable", ev)
	if err != nil || got != "enabled !r:x" {
		t.Errorf("got %q, %v", got, err)
	}

	// Unknown subcommand falls back to the bare name when registered.
	if got, err := router.Route(context.Background(), "/hanashi help me", ev); err != nil || got != "help" {
		t.Errorf("fallback: got %q, %v", got, err)
	}

	if _, err := router.Route(context.Background(), "/hanashi nope", ev); err == nil {
		t.Error("expected error for unknown command")
	}
}
