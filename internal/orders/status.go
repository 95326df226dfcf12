package orders

import "github.com/dining/totable/internal/model"

// Aggregate derives an order's status from its items. Precedence, first
// match wins: all items complete → complete; any item in-progress →
// in-progress; otherwise pending. An empty item set aggregates to pending.
func Aggregate(items []model.Item) model.Status {
	if len(items) == 0 {
		return model.StatusPending
	}

	complete := 0
	inProgress := false
	for _, item := range items {
		switch item.Status {
		case model.StatusComplete:
			complete++
		case model.StatusInProgress:
			inProgress = true
		}
	}

	if complete == len(items) {
		return model.StatusComplete
	}
	if inProgress {
		return model.StatusInProgress
	}
	return model.StatusPending
}

// Advance returns the item's status after requesting a transition to
// newStatus. Complete is terminal: an item already complete never regresses,
// whatever was requested.
func Advance(current, newStatus model.Status) model.Status {
	if current == model.StatusComplete {
		return model.StatusComplete
	}
	return newStatus
}
