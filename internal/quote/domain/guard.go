package domain

import "github.com/smallbiznis/facture/internal/document"

// Guard gates quote mutations on the current status. Accepted, rejected and
// expired quotes are immutable.
type Guard struct {
	Status QuoteStatus
}

// GuardFor returns the transition guard for q.
func GuardFor(q *Quote) document.TransitionGuard {
	return Guard{Status: q.Status}
}

func (g Guard) CanUpdate() error {
	if g.Status.Terminal() {
		return ErrQuoteLocked
	}
	return nil
}

func (g Guard) CanDelete() error {
	if g.Status.Terminal() {
		return ErrQuoteCannotBeDeleted
	}
	return nil
}

func (g Guard) CanMutateLines() error {
	return g.CanUpdate()
}

var _ document.TransitionGuard = Guard{}
