package ledger

import "context"

// Store is the persistence boundary of the ledger. Implementations must make
// CompareAndSetStatus atomic per request.
type Store interface {
	// Create stores req unless a request with the same id exists. It returns
	// the stored record and whether this call created it.
	Create(ctx context.Context, req *CompensationRequest) (*CompensationRequest, bool, error)

	// Get returns the request or ErrNotFound
	Get(ctx context.Context, id string) (*CompensationRequest, error)

	// CompareAndSetStatus moves the request from one status to another and
	// applies mutate to the stored copy. When the current status is not from,
	// nothing is written and the current record is returned with false.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status, mutate func(*CompensationRequest)) (*CompensationRequest, bool, error)

	// ListByPlayer returns the player's requests, oldest first
	ListByPlayer(ctx context.Context, playerID string) ([]*CompensationRequest, error)
}
