package identity

import (
	"context"

	"github.com/google/uuid"

	"clubgov/apperr"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// IDsForUser returns the union of identity ids over the user's history.
// A vote cast under an older identity of the same user must still resolve
// as that user's vote, so callers always check membership against the
// whole union, never against the latest identity only.
func (s *Service) IDsForUser(ctx context.Context, userID int64) (IDSet, error) {
	entries, err := s.store.HistoryByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("user_not_found", "user has no identity history", nil)
	}

	set := make(IDSet, len(entries))
	for _, e := range entries {
		set[e.IdentityID] = struct{}{}
	}
	return set, nil
}

// Resolve fetches identity records by id, for attaching voter lists to
// non-anonymous results.
func (s *Service) Resolve(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Identity, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Identity{}, nil
	}
	records, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]Identity, len(records))
	for _, rec := range records {
		out[rec.ID] = rec
	}
	return out, nil
}

// Rename is the only mutation identities support.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if name == "" {
		return apperr.Validation("empty_name", "identity name required", nil)
	}
	return s.store.Rename(ctx, id, name)
}
