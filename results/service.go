package results

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/attendance"
	"clubgov/ballot"
	"clubgov/fanout"
	"clubgov/identity"
	"clubgov/metrics"
	"clubgov/tabulate"
)

// Service is the in-process surface the transport layer calls: full
// tabulation for one ballot, and order-preserving status batches over
// ballots or meetings.
type Service struct {
	ballots    ballot.Store
	identities *identity.Service
	attendance *attendance.Service
	fan        fanout.Options
	log        *slog.Logger
	now        func() time.Time
}

func NewService(ballots ballot.Store, identities *identity.Service, att *attendance.Service) *Service {
	return &Service{
		ballots:    ballots,
		identities: identities,
		attendance: att,
		log:        slog.Default(),
		now:        time.Now,
	}
}

// SetLogger replaces the default logger.
func (s *Service) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// SetFanout bounds batch concurrency and rate; zero values mean unbounded.
func (s *Service) SetFanout(opts fanout.Options) {
	s.fan = opts
}

// Compute tabulates one ballot for the requesting user: counts, the
// distinct-voter count, apportioned percentages, the user's own votes
// resolved across their full identity history, and voter listings unless
// the ballot is anonymous.
func (s *Service) Compute(ctx context.Context, ballotID, userID int64) (*tabulate.Result, error) {
	b, err := s.ballots.GetByID(ctx, ballotID)
	if err != nil {
		return nil, err
	}

	mine, err := s.identities.IDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	votes, err := s.ballots.VotesByBallot(ctx, ballotID)
	if err != nil {
		return nil, err
	}

	var roster map[uuid.UUID]identity.Identity
	if !b.Anonymous {
		roster, err = s.identities.Resolve(ctx, distinctVoters(b, votes))
		if err != nil {
			return nil, err
		}
	}

	res := tabulate.Tabulate(b, votes, mine, roster)
	metrics.IncTabulation(b.Anonymous)
	return res, nil
}

// BallotStatus is the per-ballot slice of a batch lookup.
type BallotStatus struct {
	BallotID int64   `json:"ballot_id"`
	Open     bool    `json:"open"`
	MyVotes  []uint8 `json:"my_votes"`
	Voted    bool    `json:"voted"`
}

// BallotStatuses resolves "did I vote, and for what" for every ballot in
// ids, concurrently, returning statuses in the input order. The identity
// union is resolved once and shared read-only by every lookup. Any single
// failure aborts the batch.
func (s *Service) BallotStatuses(ctx context.Context, ids []int64, userID int64) ([]BallotStatus, error) {
	mine, err := s.identities.IDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	mineIDs := setToSlice(mine)

	start := s.now()
	out, err := fanout.MapOpts(ctx, s.fan, ids, func(ctx context.Context, id int64) (BallotStatus, error) {
		b, err := s.ballots.GetByID(ctx, id)
		if err != nil {
			return BallotStatus{}, err
		}
		votes, err := s.ballots.VotesByIdentities(ctx, id, mineIDs)
		if err != nil {
			return BallotStatus{}, err
		}
		my := myIndices(b, votes)
		return BallotStatus{
			BallotID: id,
			Open:     b.IsOpen(s.now()),
			MyVotes:  my,
			Voted:    len(my) > 0,
		}, nil
	})
	metrics.ObserveBatch("ballots", err == nil, s.now().Sub(start))
	if err != nil {
		s.log.Warn("ballot status batch failed", "count", len(ids), "err", err)
		return nil, apperr.Batch("batch_failed", "ballot status batch aborted", err)
	}
	return out, nil
}

// MeetingStatus is the per-meeting slice of a batch lookup.
type MeetingStatus struct {
	MeetingID int64 `json:"meeting_id"`
	Attended  bool  `json:"attended"`
}

// MeetingStatuses is the attendance analogue of BallotStatuses.
func (s *Service) MeetingStatuses(ctx context.Context, ids []int64, userID int64) ([]MeetingStatus, error) {
	mine, err := s.identities.IDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	out, err := fanout.MapOpts(ctx, s.fan, ids, func(ctx context.Context, id int64) (MeetingStatus, error) {
		attended, err := s.attendance.Attended(ctx, id, mine)
		if err != nil {
			return MeetingStatus{}, err
		}
		return MeetingStatus{MeetingID: id, Attended: attended}, nil
	})
	metrics.ObserveBatch("meetings", err == nil, s.now().Sub(start))
	if err != nil {
		s.log.Warn("meeting status batch failed", "count", len(ids), "err", err)
		return nil, apperr.Batch("batch_failed", "meeting status batch aborted", err)
	}
	return out, nil
}

// myIndices collects the option indices the caller voted for, ascending,
// skipping the abstention index.
func myIndices(b *ballot.Ballot, votes []ballot.Vote) []uint8 {
	set := make(map[uint8]struct{}, len(votes))
	for _, v := range votes {
		if v.OptionIndex == ballot.AbstentionIndex || int(v.OptionIndex) > len(b.Options) {
			continue
		}
		set[v.OptionIndex] = struct{}{}
	}
	out := make([]uint8, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func distinctVoters(b *ballot.Ballot, votes []ballot.Vote) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(votes))
	out := make([]uuid.UUID, 0, len(votes))
	for _, v := range votes {
		if v.OptionIndex == ballot.AbstentionIndex || int(v.OptionIndex) > len(b.Options) {
			continue
		}
		if _, ok := seen[v.IdentityID]; ok {
			continue
		}
		seen[v.IdentityID] = struct{}{}
		out = append(out, v.IdentityID)
	}
	return out
}

func setToSlice(set identity.IDSet) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
