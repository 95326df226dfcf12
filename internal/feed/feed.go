package feed

// Document is one raw order document as delivered by the store, before any
// decoding. Data values mirror the stored shape (items as []any of maps).
type Document struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Update is one delivery on a subscription: either a full snapshot of the
// restaurant's order documents, newest first, or a feed error. A snapshot
// fully supersedes every earlier one.
type Update struct {
	Documents []Document
	Err       error
}

// Source is the live order feed of the document store. Subscribe returns a
// channel of updates scoped to one restaurant and a cancel function that
// releases the subscription and closes the channel; cancel is idempotent.
// The first update carries the current state.
type Source interface {
	Subscribe(restaurantID string) (<-chan Update, func(), error)
}
