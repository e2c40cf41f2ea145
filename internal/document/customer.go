package document

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// CustomerDetails are the customer-facing fields stamped onto a document.
// When CustomerID is set the fields mirror the registered company at the
// time of the last create/update; otherwise they are free text.
type CustomerDetails struct {
	CustomerID *snowflake.ID
	Name       string
	Address    string
	Zip        string
	City       string
	Country    string
}

// CustomerDirectory resolves a registered customer's display fields.
// A nil result means the customer does not exist.
type CustomerDirectory interface {
	CustomerDetails(ctx context.Context, id snowflake.ID) (*CustomerDetails, error)
}
