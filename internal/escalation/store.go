package escalation

import "context"

// Store is the persistence boundary for cases. Update must be atomic per case.
type Store interface {
	// Create stores c unless a case with the same id exists. It returns the
	// stored case and whether this call created it.
	Create(ctx context.Context, c *Case) (*Case, bool, error)

	// Get returns the case or ErrCaseNotFound
	Get(ctx context.Context, id string) (*Case, error)

	// Update applies fn to a copy of the stored case. When fn returns false
	// nothing is written and the current case is returned with false.
	Update(ctx context.Context, id string, fn func(*Case) bool) (*Case, bool, error)

	// List returns every stored case
	List(ctx context.Context) ([]*Case, error)
}
