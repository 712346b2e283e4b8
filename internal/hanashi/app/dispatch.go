package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bdobrica/hanashi/common/trace"
	"github.com/bdobrica/hanashi/internal/hanashi/commands"
	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
	"github.com/bdobrica/hanashi/internal/hanashi/engine"
)

type eventHandler interface {
	Handle(ctx context.Context, ev conversation.Event) engine.Outcome
}

type replier interface {
	SendFormatted(ctx context.Context, roomID, html, plaintext string) error
}

// dispatcher routes inbound events: admin commands are answered inline,
// everything else goes to the engine on its own goroutine so a slow
// completion never stalls the sync loop.
type dispatcher struct {
	router  *commands.Router
	engine  eventHandler
	replies replier
	isAdmin func(sender string) bool

	wg sync.WaitGroup
}

func newDispatcher(router *commands.Router, eng eventHandler, replies replier, isAdmin func(string) bool) *dispatcher {
	return &dispatcher{router: router, engine: eng, replies: replies, isAdmin: isAdmin}
}

func (d *dispatcher) dispatch(ctx context.Context, ev conversation.Event) {
	// Shutdown cancels ctx; events already accepted still run to completion.
	ctx = trace.WithTraceID(context.WithoutCancel(ctx), trace.GenerateID())

	if d.router.IsCommand(ev.Text) {
		if !d.isAdmin(ev.SenderID) {
			slog.Debug("ignoring command from non-admin", "sender_id", ev.SenderID, "group_id", ev.GroupID)
			return
		}
		d.runCommand(ctx, ev)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.engine.Handle(ctx, ev)
	}()
}

func (d *dispatcher) runCommand(ctx context.Context, ev conversation.Event) {
	response, err := d.router.Route(ctx, ev.Text, &ev)
	if err != nil {
		if errors.Is(err, commands.ErrNotACommand) {
			return
		}
		response = fmt.Sprintf("❌ Error: %s", err)
	}
	if response == "" {
		return
	}
	if err := d.replies.SendFormatted(ctx, ev.GroupID, markdownToHTML(response), response); err != nil {
		slog.Error("failed to send command response", "group_id", ev.GroupID, "err", err)
	}
}

// wait blocks until every event handed to the engine has finished.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
