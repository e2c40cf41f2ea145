package document

// TransitionGuard gates mutations on a document according to its current
// state. Each document type provides its own implementation; callers check
// the guard before applying any change.
type TransitionGuard interface {
	// CanUpdate reports whether document fields (including status) may change.
	CanUpdate() error
	// CanDelete reports whether the document may be deleted.
	CanDelete() error
	// CanMutateLines reports whether lines may be created, updated or deleted.
	CanMutateLines() error
}
