package matrix

import (
	"slices"
	"strings"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// botNames lists the names a user may address the bot by: its full ID, its
// localpart and its display name.
func botNames(self id.UserID, displayName string) []string {
	names := []string{self.String()}
	if lp := localpart(self); lp != "" && lp != self.String() {
		names = append(names, lp)
	}
	if displayName != "" && !slices.Contains(names, displayName) {
		names = append(names, displayName)
	}
	return names
}

// isAddressed reports whether a message is directed at the bot. Clients that
// support intentional mentions list the bot in m.mentions; older clients put
// a pill or "name:" prefix in the body.
func isAddressed(content *event.MessageEventContent, body string, self id.UserID, names []string) bool {
	if content.Mentions != nil && slices.Contains(content.Mentions.UserIDs, self) {
		return true
	}
	if strings.Contains(body, self.String()) {
		return true
	}
	_, ok := cutAddress(body, names)
	return ok
}

// stripAddress removes a leading "name:" or "name," and surrounding space.
func stripAddress(body string, names []string) string {
	if rest, ok := cutAddress(body, names); ok {
		return rest
	}
	return strings.TrimSpace(body)
}

func cutAddress(body string, names []string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	lower := strings.ToLower(trimmed)
	for _, name := range names {
		n := strings.ToLower(name)
		if !strings.HasPrefix(lower, n) || len(lower) == len(n) {
			continue
		}
		switch lower[len(n)] {
		case ':', ',':
			return strings.TrimSpace(trimmed[len(n)+1:]), true
		}
	}
	return "", false
}

// stripReplyFallback drops the "> quoted" lines clients prepend to replies.
func stripReplyFallback(body string) string {
	if !strings.HasPrefix(body, "> ") {
		return body
	}
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) && strings.HasPrefix(lines[i], ">") {
		i++
	}
	return strings.TrimSpace(strings.Join(lines[i:], "\n"))
}
