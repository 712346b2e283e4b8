package commands_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdobrica/hanashi/internal/hanashi/commands"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
	"github.com/bdobrica/hanashi/internal/hanashi/store"
)

func newRouter(t *testing.T) (*commands.Router, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "commands-test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := commands.NewRouter("/hanashi", "/aichat")
	commands.NewHandlers(s).Register(r)
	return r, s
}

func adminEvent() *conversation.Event {
	return &conversation.Event{GroupID: "!room:example.org", SenderID: "@admin:example.org"}
}

func TestGroupEnableDisable(t *testing.T) {
	r, s := newRouter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := r.Route(ctx, "/hanashi group disable", adminEvent()); err != nil {
			t.Fatalf("disable: %v", err)
		}
	}
	gs, err := s.GetGroupState(ctx, "!room:example.org")
	if err != nil {
		t.Fatal(err)
	}
	if gs.Enabled {
		t.Error("group still enabled after disable")
	}

	if _, err := r.Route(ctx, "/aichat group enable", adminEvent()); err != nil {
		t.Fatalf("enable: %v", err)
	}
	gs, _ = s.GetGroupState(ctx, "!room:example.org")
	if !gs.Enabled {
		t.Error("group disabled after enable")
	}

	out, err := r.Route(ctx, "/hanashi group status", adminEvent())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Enabled: true") || !strings.Contains(out, "Last reply: never") {
		t.Errorf("status output: %q", out)
	}
}

func TestBlacklistCommands(t *testing.T) {
	r, s := newRouter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := r.Route(ctx, "/hanashi blacklist add @spam:example.org", adminEvent()); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if ok, _ := s.IsBlacklisted(ctx, "@spam:example.org"); !ok {
		t.Fatal("user not blacklisted")
	}

	out, err := r.Route(ctx, "/hanashi blacklist list", adminEvent())
	if err != nil || !strings.Contains(out, "@spam:example.org") {
		t.Errorf("list: got %q, %v", out, err)
	}

	for i := 0; i < 2; i++ {
		if _, err := r.Route(ctx, "/hanashi blacklist remove @spam:example.org", adminEvent()); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	if ok, _ := s.IsBlacklisted(ctx, "@spam:example.org"); ok {
		t.Error("user still blacklisted")
	}
}

func TestBlacklist_RejectsInvalidUserID(t *testing.T) {
	r, _ := newRouter(t)
	for _, input := range []string{
		"/hanashi blacklist add",
		"/hanashi blacklist add bob",
		"/hanashi blacklist add @bob",
	} {
		if _, err := r.Route(context.Background(), input, adminEvent()); err == nil {
			t.Errorf("%q: expected error", input)
		}
	}
}

func TestImpressionCommands(t *testing.T) {
	r, s := newRouter(t)
	ctx := context.Background()

	out, err := r.Route(ctx, "/hanashi impression show @a:example.org", adminEvent())
	if err != nil || !strings.Contains(out, "No impression") {
		t.Errorf("show (absent): got %q, %v", out, err)
	}

	if err := s.PutImpression(ctx, "@a:example.org", "likes cats"); err != nil {
		t.Fatal(err)
	}
	out, err = r.Route(ctx, "/hanashi impression show @a:example.org", adminEvent())
	if err != nil || !strings.Contains(out, "likes cats") {
		t.Errorf("show: got %q, %v", out, err)
	}

	if _, err := r.Route(ctx, "/hanashi impression clear @a:example.org", adminEvent()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if imp, _ := s.GetImpression(ctx, "@a:example.org"); imp != nil {
		t.Error("impression still present after clear")
	}
	out, err = r.Route(ctx, "/hanashi impression clear @a:example.org", adminEvent())
	if err != nil || !strings.Contains(out, "No impression") {
		t.Errorf("second clear: got %q, %v", out, err)
	}
}

func TestHelpAndVersion(t *testing.T) {
	r, _ := newRouter(t)
	help, err := r.Route(context.Background(), "/hanashi help", adminEvent())
	if err != nil || !strings.Contains(help, "/hanashi blacklist add") {
		t.Errorf("help: got %q, %v", help, err)
	}
	v, err := r.Route(context.Background(), "/hanashi version", adminEvent())
	if err != nil || !strings.Contains(v, "Version:") {
		t.Errorf("version: got %q, %v", v, err)
	}
}
