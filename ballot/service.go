package ballot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"clubgov/apperr"
)

var (
	ErrBallotClosed      = errors.New("ballot is closed")
	ErrAlreadyVoted      = errors.New("identity already voted in this ballot")
	ErrOptionNotInBallot = errors.New("option does not belong to ballot")
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Create(ctx context.Context, b *Ballot) (int64, error) {
	if b.Question == "" {
		return 0, apperr.Validation("empty_question", "question required", nil)
	}
	if err := ValidateOptions(b.Options); err != nil {
		return 0, err
	}
	return s.store.Create(ctx, b)
}

func (s *Service) Get(ctx context.Context, id int64) (*Ballot, error) {
	return s.store.GetByID(ctx, id)
}

// ReplaceOptions swaps the whole option set. Replacing single options is
// not supported; the invariant is over the complete list.
func (s *Service) ReplaceOptions(ctx context.Context, ballotID int64, options []Option) error {
	if err := ValidateOptions(options); err != nil {
		return err
	}
	return s.store.ReplaceOptions(ctx, ballotID, options)
}

func (s *Service) Close(ctx context.Context, id int64) error {
	return s.store.Close(ctx, id, s.now())
}

// Cast records a vote by one identity. Casting is idempotent per
// (option, identity). On single-select ballots a second vote on a
// different option is rejected; repeating the same option is a no-op.
func (s *Service) Cast(ctx context.Context, ballotID int64, optionIndex uint8, identityID uuid.UUID) error {
	b, err := s.store.GetByID(ctx, ballotID)
	if err != nil {
		return err
	}
	if !b.IsOpen(s.now()) {
		return ErrBallotClosed
	}
	if optionIndex == AbstentionIndex || int(optionIndex) > len(b.Options) {
		return ErrOptionNotInBallot
	}

	if !b.MultiSelect {
		existing, err := s.store.VotesByIdentities(ctx, ballotID, []uuid.UUID{identityID})
		if err != nil {
			return err
		}
		for _, v := range existing {
			if v.OptionIndex == optionIndex {
				return nil
			}
		}
		if len(existing) > 0 {
			return ErrAlreadyVoted
		}
	}

	return s.store.CastVote(ctx, &Vote{
		BallotID:    ballotID,
		OptionIndex: optionIndex,
		IdentityID:  identityID,
	})
}
