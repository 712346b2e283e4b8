// Package impression keeps the short free-text memory Hanashi holds about
// each regular participant. After a reply is delivered the engine hands a Job
// to the Worker, which refreshes impressions in the background.
package impression

import "github.com/bdobrica/hanashi/internal/hanashi/conversation"

// Candidate is a user eligible for an impression refresh together with their
// message texts from the window, oldest first.
type Candidate struct {
	UserID   string
	Messages []string
}

// Eligible returns every user other than botID with at least min messages in
// window, in order of first appearance.
func Eligible(window []conversation.Message, botID string, min int) []Candidate {
	if min < 1 {
		min = 1
	}
	order := make([]string, 0)
	texts := make(map[string][]string)
	for _, m := range window {
		if m.UserID == "" || m.UserID == botID {
			continue
		}
		if _, ok := texts[m.UserID]; !ok {
			order = append(order, m.UserID)
		}
		texts[m.UserID] = append(texts[m.UserID], m.Text)
	}

	var out []Candidate
	for _, uid := range order {
		if len(texts[uid]) >= min {
			out = append(out, Candidate{UserID: uid, Messages: texts[uid]})
		}
	}
	return out
}
