package engine

import (
	"errors"
	"fmt"

	"github.com/bdobrica/hanashi/internal/hanashi/completion"
	"github.com/bdobrica/hanashi/internal/hanashi/prompt"
)

// User-visible messages sent when the primary path fails.
const (
	MsgBuildFailed = "Sorry, I could not build the request, so I can't reply right now."
	MsgTimeout     = "Sorry, the AI service took too long to answer. Please try again later."
	MsgNetwork     = "Sorry, a network error occurred while contacting the AI service."
	MsgServerFmt   = "Sorry, the AI service returned an error (%d)."
	MsgMalformed   = "Sorry, the AI service did not return a usable answer."
	MsgUnknown     = "Sorry, something went wrong while talking to the AI service."
)

// Apology returns the message shown in the group for a primary-path error.
func Apology(err error) string {
	if errors.Is(err, prompt.ErrConfigUnavailable) {
		return MsgBuildFailed
	}
	kind, ok := completion.KindOf(err)
	if !ok {
		return MsgUnknown
	}
	switch kind {
	case completion.KindTimeout:
		return MsgTimeout
	case completion.KindNetwork:
		return MsgNetwork
	case completion.KindServer:
		return fmt.Sprintf(MsgServerFmt, completion.StatusOf(err))
	case completion.KindMalformed:
		return MsgMalformed
	default:
		return MsgUnknown
	}
}
