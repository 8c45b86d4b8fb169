package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity is an opaque participant handle. Votes and attendance reference
// identities, never user accounts, so renaming or rotating an identity keeps
// past records attributable.
type Identity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry links a user account to an identity from a point in time.
// History is append-only: entries are never deleted, so the set of
// identities ever linked to a user only grows.
type HistoryEntry struct {
	UserID     int64     `json:"user_id"`
	IdentityID uuid.UUID `json:"identity_id"`
	ValidFrom  time.Time `json:"valid_from"`
}

// IDSet is the union of identity ids ever linked to one user.
type IDSet map[uuid.UUID]struct{}

func (s IDSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

type Store interface {
	HistoryByUser(ctx context.Context, userID int64) ([]HistoryEntry, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]Identity, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
}
