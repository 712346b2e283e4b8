// Package commands provides parsing and routing for the /hanashi admin
// commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bdobrica/hanashi/internal/hanashi/conversation"
)

// Command represents a parsed command
type Command struct {
	Name       string
	Subcommand string
	Args       []string
	RawText    string
}

// ErrNotACommand is returned by Parse when the message does not start with
// one of the command prefixes. Callers should use errors.Is to tell it apart
// from real errors.
var ErrNotACommand = errors.New("not a command (missing prefix)")

// Handler handles one command issued in the room of ev.
type Handler func(ctx context.Context, cmd *Command, ev *conversation.Event) (string, error)

// Router routes commands to handlers
type Router struct {
	handlers map[string]Handler
	prefixes []string
}

// NewRouter creates a router answering to any of prefixes.
func NewRouter(prefixes ...string) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		prefixes: prefixes,
	}
}

// Register registers a handler under "name" or "name.subcommand".
func (r *Router) Register(command string, handler Handler) {
	r.handlers[command] = handler
}

// IsCommand reports whether text starts with one of the router's prefixes.
func (r *Router) IsCommand(text string) bool {
	_, ok := r.stripPrefix(strings.TrimSpace(text))
	return ok
}

func (r *Router) stripPrefix(text string) (string, bool) {
	for _, p := range r.prefixes {
		if !strings.HasPrefix(text, p) {
			continue
		}
		rest := text[len(p):]
		// "/hanashix" is not "/hanashi".
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' {
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// Parse parses a message into a command
func (r *Router) Parse(text string) (*Command, error) {
	text, ok := r.stripPrefix(strings.TrimSpace(text))
	if !ok {
		return nil, ErrNotACommand
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := &Command{
		Name:    strings.ToLower(parts[0]),
		Args:    []string{},
		RawText: text,
	}

	if len(parts) > 1 {
		cmd.Subcommand = strings.ToLower(parts[1])
		cmd.Args = append(cmd.Args, parts[2:]...)
	}

	return cmd, nil
}

// Route parses and routes a command to its handler
func (r *Router) Route(ctx context.Context, text string, ev *conversation.Event) (string, error) {
	cmd, err := r.Parse(text)
	if err != nil {
		return "", err
	}

	handlerKey := cmd.Name
	if cmd.Subcommand != "" {
		handlerKey = cmd.Name + "." + cmd.Subcommand
	}

	handler, ok := r.handlers[handlerKey]
	if !ok {
		// Fall back to the bare command name
		handler, ok = r.handlers[cmd.Name]
		if !ok {
			return "", fmt.Errorf("unknown command: %s", cmd.FullCommand())
		}
	}

	return handler(ctx, cmd, ev)
}

// GetArg returns an argument by index
func (c *Command) GetArg(index int) (string, bool) {
	if index < 0 || index >= len(c.Args) {
		return "", false
	}
	return c.Args[index], true
}

// FullCommand returns the full command string
func (c *Command) FullCommand() string {
	if c.Subcommand != "" {
		return c.Name + " " + c.Subcommand
	}
	return c.Name
}
