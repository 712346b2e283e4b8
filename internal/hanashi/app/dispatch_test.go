package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bdobrica/hanashi/common/trace"
	"github.com/bdobrica/hanashi/internal/hanashi/commands"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
	"github.com/bdobrica/hanashi/internal/hanashi/engine"
)

type recordingEngine struct {
	mu     sync.Mutex
	events []conversation.Event
	traces []string
}

func (r *recordingEngine) Handle(ctx context.Context, ev conversation.Event) engine.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.traces = append(r.traces, trace.FromContext(ctx))
	return engine.OutcomeSuppressed
}

type recordingReplier struct {
	plain []string
	html  []string
}

func (r *recordingReplier) SendFormatted(_ context.Context, _, html, plaintext string) error {
	r.html = append(r.html, html)
	r.plain = append(r.plain, plaintext)
	return nil
}

func newTestDispatcher() (*dispatcher, *recordingEngine, *recordingReplier) {
	router := commands.NewRouter("/hanashi", "/aichat")
	router.Register("help", func(context.Context, *commands.Command, *conversation.Event) (string, error) {
		return "**help**", nil
	})
	eng := &recordingEngine{}
	rep := &recordingReplier{}
	isAdmin := func(sender string) bool { return sender == "@admin:x" }
	return newDispatcher(router, eng, rep, isAdmin), eng, rep
}

func TestDispatch_ChatGoesToEngine(t *testing.T) {
	d, eng, rep := newTestDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	d.dispatch(ctx, conversation.Event{GroupID: "!r:x", SenderID: "@a:x", Text: "hello"})
	cancel()
	d.wait()

	if len(eng.events) != 1 || eng.events[0].Text != "hello" {
		t.Fatalf("engine events: %+v", eng.events)
	}
	if eng.traces[0] == "" {
		t.Error("event handled without a trace ID")
	}
	if len(rep.plain) != 0 {
		t.Errorf("unexpected command reply: %v", rep.plain)
	}
}

func TestDispatch_AdminCommand(t *testing.T) {
	d, eng, rep := newTestDispatcher()

	d.dispatch(context.Background(), conversation.Event{GroupID: "!r:x", SenderID: "@admin:x", Text: "/hanashi help"})
	d.wait()

	if len(eng.events) != 0 {
		t.Error("commands must not reach the engine")
	}
	if len(rep.html) != 1 || rep.html[0] != "<strong>help</strong>" {
		t.Errorf("reply: got %v", rep.html)
	}
}

func TestDispatch_NonAdminCommandIgnored(t *testing.T) {
	d, eng, rep := newTestDispatcher()

	d.dispatch(context.Background(), conversation.Event{GroupID: "!r:x", SenderID: "@a:x", Text: "/aichat help"})
	d.wait()

	if len(eng.events) != 0 || len(rep.plain) != 0 {
		t.Errorf("non-admin command had an effect: engine=%v replies=%v", eng.events, rep.plain)
	}
}

func TestDispatch_CommandErrorReported(t *testing.T) {
	d, _, rep := newTestDispatcher()

	d.dispatch(context.Background(), conversation.Event{GroupID: "!r:x", SenderID: "@admin:x", Text: "/hanashi nope"})
	if len(rep.plain) != 1 || !strings.HasPrefix(rep.plain[0], "❌ Error:") {
		t.Errorf("reply: got %v", rep.plain)
	}
}

func TestMarkdownToHTML(t *testing.T) {
	tests := []struct{ in, want string }{
		{"**Room**\nEnabled: true", "<strong>Room</strong><br/>Enabled: true"},
		{"use `x<y`", "use <code>x&lt;y</code>"},
		{"```\na<b\n```", "<pre><code>a&lt;b\n</code></pre>"},
		{"unmatched **bold", "unmatched **bold"},
	}
	for _, tt := range tests {
		if got := markdownToHTML(tt.in); got != tt.want {
			t.Errorf("markdownToHTML(%q):\n got %q\nwant %q", tt.in, got, tt.want)
		}
	}
}
