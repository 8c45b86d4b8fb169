package ballot

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AbstentionIndex is the reserved option index meaning "no option selected".
// It never appears in an option list and is excluded from vote resolution.
const AbstentionIndex uint8 = 0

// Ballot is a poll or voting: a question with an ordered option list.
// Whether it is open is derived from the close time at read time, never stored.
type Ballot struct {
	ID          int64     `json:"id"`
	Question    string    `json:"question"`
	Description *string   `json:"description,omitempty"`
	Anonymous   bool      `json:"anonymous"`
	MultiSelect bool      `json:"multi_select"`
	ClosesAt    time.Time `json:"closes_at"`
	CreatedAt   time.Time `json:"created_at"`
	Options     []Option  `json:"options"`
}

func (b *Ballot) IsOpen(now time.Time) bool {
	return b.ClosesAt.After(now)
}

// Option belongs to exactly one ballot. Index is 1-based and unique within
// the ballot; ValidateOptions enforces contiguity.
type Option struct {
	BallotID int64  `json:"ballot_id"`
	Index    uint8  `json:"index"`
	Text     string `json:"text"`
}

// Vote links one option to one identity. The (ballot, option, identity)
// triple is unique in the store; casting is idempotent.
type Vote struct {
	BallotID    int64     `json:"ballot_id"`
	OptionIndex uint8     `json:"option_index"`
	IdentityID  uuid.UUID `json:"identity_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, b *Ballot) (int64, error)
	GetByID(ctx context.Context, id int64) (*Ballot, error)
	ReplaceOptions(ctx context.Context, ballotID int64, options []Option) error
	Close(ctx context.Context, id int64, closesAt time.Time) error

	// VotesByBallot must return a single consistent snapshot: no option may
	// see votes from a different point in time than its siblings.
	VotesByBallot(ctx context.Context, ballotID int64) ([]Vote, error)
	// CastVote inserts at most one vote per (option, identity); repeating
	// the same cast is a no-op.
	CastVote(ctx context.Context, v *Vote) error
	VotesByIdentities(ctx context.Context, ballotID int64, ids []uuid.UUID) ([]Vote, error)
}
