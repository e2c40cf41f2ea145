package domain

import "github.com/smallbiznis/facture/internal/document"

// Guard gates invoice mutations. The lock flag and any status other than
// draft both freeze the document; deletion is allowed in draft only.
type Guard struct {
	Status   InvoiceStatus
	IsLocked bool
}

// GuardFor returns the transition guard for inv.
func GuardFor(inv *Invoice) document.TransitionGuard {
	return Guard{Status: inv.Status, IsLocked: inv.IsLocked}
}

func (g Guard) CanUpdate() error {
	if g.IsLocked || g.Status != InvoiceStatusDraft {
		return ErrInvoiceLocked
	}
	return nil
}

func (g Guard) CanDelete() error {
	if g.IsLocked {
		return ErrInvoiceLocked
	}
	if g.Status != InvoiceStatusDraft {
		return ErrInvoiceDeleteNotDraft
	}
	return nil
}

func (g Guard) CanMutateLines() error {
	return g.CanUpdate()
}

var _ document.TransitionGuard = Guard{}
