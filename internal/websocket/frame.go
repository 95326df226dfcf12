package websocket

import "github.com/dining/totable/internal/feed"

// Frame is one message on the order feed: a full snapshot of the
// restaurant's order documents, or a feed error. A snapshot fully
// supersedes every earlier one.
type Frame struct {
	Documents []feed.Document `json:"documents"`
	Error     string          `json:"error,omitempty"`
}
