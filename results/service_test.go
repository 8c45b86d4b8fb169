package results

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/attendance"
	"clubgov/ballot"
	"clubgov/identity"
)

type memoryStore struct {
	mu         sync.Mutex
	ballots    map[int64]*ballot.Ballot
	votes      map[int64][]ballot.Vote
	history    map[int64][]identity.HistoryEntry
	identities map[uuid.UUID]identity.Identity
	meetings   map[int64]*attendance.Meeting
	attendees  map[int64][]uuid.UUID
	failOn     int64 // entity id whose lookup fails with a store error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		ballots:    make(map[int64]*ballot.Ballot),
		votes:      make(map[int64][]ballot.Vote),
		history:    make(map[int64][]identity.HistoryEntry),
		identities: make(map[uuid.UUID]identity.Identity),
		meetings:   make(map[int64]*attendance.Meeting),
		attendees:  make(map[int64][]uuid.UUID),
	}
}

func (s *memoryStore) Create(ctx context.Context, b *ballot.Ballot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots[b.ID] = b
	return b.ID, nil
}

func (s *memoryStore) GetByID(ctx context.Context, id int64) (*ballot.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != 0 && id == s.failOn {
		return nil, apperr.Store("store_error", "backing store unavailable", nil)
	}
	b, ok := s.ballots[id]
	if !ok {
		return nil, apperr.NotFound("ballot_not_found", "ballot not found", nil)
	}
	return b, nil
}

func (s *memoryStore) ReplaceOptions(ctx context.Context, ballotID int64, options []ballot.Option) error {
	return nil
}

func (s *memoryStore) Close(ctx context.Context, id int64, closesAt time.Time) error {
	return nil
}

func (s *memoryStore) VotesByBallot(ctx context.Context, ballotID int64) ([]ballot.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ballot.Vote(nil), s.votes[ballotID]...), nil
}

func (s *memoryStore) VotesByIdentities(ctx context.Context, ballotID int64, ids []uuid.UUID) ([]ballot.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ballot.Vote
	for _, v := range s.votes[ballotID] {
		for _, id := range ids {
			if v.IdentityID == id {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

func (s *memoryStore) CastVote(ctx context.Context, v *ballot.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[v.BallotID] = append(s.votes[v.BallotID], *v)
	return nil
}

func (s *memoryStore) HistoryByUser(ctx context.Context, userID int64) ([]identity.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[userID], nil
}

func (s *memoryStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []identity.Identity
	for _, id := range ids {
		if rec, ok := s.identities[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memoryStore) Rename(ctx context.Context, id uuid.UUID, name string) error {
	return nil
}

func (s *memoryStore) GetMeeting(ctx context.Context, id int64) (*attendance.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, apperr.NotFound("meeting_not_found", "meeting not found", nil)
	}
	return m, nil
}

func (s *memoryStore) AttendeesByMeeting(ctx context.Context, meetingID int64) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != 0 && meetingID == s.failOn {
		return nil, apperr.Store("store_error", "backing store unavailable", nil)
	}
	return s.attendees[meetingID], nil
}

func (s *memoryStore) RecordAttendance(ctx context.Context, rec *attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendees[rec.MeetingID] = append(s.attendees[rec.MeetingID], rec.IdentityID)
	return nil
}

// link registers an identity and appends it to the user's history.
func (s *memoryStore) link(userID int64, name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.identities[id] = identity.Identity{ID: id, Name: name}
	s.history[userID] = append(s.history[userID], identity.HistoryEntry{
		UserID:     userID,
		IdentityID: id,
		ValidFrom:  time.Now(),
	})
	return id
}

func (s *memoryStore) addBallot(id int64, anonymous bool, optionCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &ballot.Ballot{
		ID:        id,
		Question:  "q",
		Anonymous: anonymous,
		ClosesAt:  time.Now().Add(time.Hour),
	}
	for i := 1; i <= optionCount; i++ {
		b.Options = append(b.Options, ballot.Option{BallotID: id, Index: uint8(i), Text: "opt"})
	}
	s.ballots[id] = b
}

func (s *memoryStore) addVote(ballotID int64, idx uint8, voter uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[ballotID] = append(s.votes[ballotID], ballot.Vote{
		BallotID: ballotID, OptionIndex: idx, IdentityID: voter,
	})
}

func newTestService(store *memoryStore) *Service {
	return NewService(store, identity.NewService(store), attendance.NewService(store))
}

func TestComputeFullReport(t *testing.T) {
	store := newMemoryStore()
	store.addBallot(1, false, 3)

	oldID := store.link(42, "heron")
	store.link(42, "kingfisher") // rotation after the vote below

	store.addVote(1, 1, oldID)
	for i := 0; i < 4; i++ {
		store.addVote(1, 1, anonVoter(store))
	}
	for i := 0; i < 3; i++ {
		store.addVote(1, 2, anonVoter(store))
	}
	for i := 0; i < 2; i++ {
		store.addVote(1, 3, anonVoter(store))
	}

	svc := newTestService(store)
	res, err := svc.Compute(context.Background(), 1, 42)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if res.TotalCount != 10 || res.IdentityCount != 10 {
		t.Fatalf("counts: total=%d identities=%d", res.TotalCount, res.IdentityCount)
	}
	if len(res.MyVotes) != 1 || res.MyVotes[0] != 1 {
		t.Fatalf("myVotes: got %v, want [1]", res.MyVotes)
	}
	wantPct := []float64{50.00, 30.00, 20.00}
	for i, or := range res.Options {
		if or.Percentage != wantPct[i] {
			t.Fatalf("option %d: got %.2f, want %.2f", or.Index, or.Percentage, wantPct[i])
		}
		if or.Identities == nil {
			t.Fatalf("non-anonymous ballot must list voters on option %d", or.Index)
		}
	}

	found := false
	for _, rec := range res.Options[0].Identities {
		if rec.Name == "heron" {
			found = true
		}
	}
	if !found {
		t.Fatal("voter name not resolved in listing")
	}
}

func anonVoter(store *memoryStore) uuid.UUID {
	id := uuid.New()
	store.mu.Lock()
	store.identities[id] = identity.Identity{ID: id, Name: "member"}
	store.mu.Unlock()
	return id
}

func TestComputeUnknownBallot(t *testing.T) {
	store := newMemoryStore()
	store.link(42, "heron")
	svc := newTestService(store)

	_, err := svc.Compute(context.Background(), 99, 42)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestComputeUnknownUser(t *testing.T) {
	store := newMemoryStore()
	store.addBallot(1, true, 2)
	svc := newTestService(store)

	_, err := svc.Compute(context.Background(), 1, 7)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestBallotStatusesPreserveOrder(t *testing.T) {
	store := newMemoryStore()
	mine := store.link(42, "heron")

	ids := []int64{5, 1, 9, 3, 7}
	for _, id := range ids {
		store.addBallot(id, true, 2)
	}
	store.addVote(9, 2, mine)

	svc := newTestService(store)
	statuses, err := svc.BallotStatuses(context.Background(), ids, 42)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(statuses) != len(ids) {
		t.Fatalf("expected %d statuses, got %d", len(ids), len(statuses))
	}
	for i, st := range statuses {
		if st.BallotID != ids[i] {
			t.Fatalf("position %d: got ballot %d, want %d", i, st.BallotID, ids[i])
		}
		wantVoted := ids[i] == 9
		if st.Voted != wantVoted {
			t.Fatalf("ballot %d: voted=%v, want %v", st.BallotID, st.Voted, wantVoted)
		}
	}
}

func TestBallotStatusesAllOrNothing(t *testing.T) {
	store := newMemoryStore()
	store.link(42, "heron")
	for _, id := range []int64{1, 2, 3, 4} {
		store.addBallot(id, true, 2)
	}
	store.failOn = 3

	svc := newTestService(store)
	statuses, err := svc.BallotStatuses(context.Background(), []int64{1, 2, 3, 4}, 42)
	if err == nil {
		t.Fatal("expected batch failure")
	}
	if statuses != nil {
		t.Fatalf("expected no partial results, got %v", statuses)
	}
	if !apperr.IsKind(err, apperr.KindBatch) {
		t.Fatalf("expected batch error, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Unwrap() == nil {
		t.Fatal("batch error must carry the first failure as its cause")
	}
}

func TestMeetingStatuses(t *testing.T) {
	store := newMemoryStore()
	mine := store.link(42, "heron")

	ids := []int64{4, 2, 6}
	for _, id := range ids {
		store.meetings[id] = &attendance.Meeting{ID: id, Title: "assembly", StartsAt: time.Now()}
	}
	store.attendees[2] = []uuid.UUID{mine}

	svc := newTestService(store)
	statuses, err := svc.MeetingStatuses(context.Background(), ids, 42)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	for i, st := range statuses {
		if st.MeetingID != ids[i] {
			t.Fatalf("position %d: got meeting %d, want %d", i, st.MeetingID, ids[i])
		}
		if st.Attended != (ids[i] == 2) {
			t.Fatalf("meeting %d: attended=%v", st.MeetingID, st.Attended)
		}
	}
}

func TestMeetingStatusesAllOrNothing(t *testing.T) {
	store := newMemoryStore()
	store.link(42, "heron")
	for _, id := range []int64{1, 2, 3} {
		store.meetings[id] = &attendance.Meeting{ID: id, Title: "assembly", StartsAt: time.Now()}
	}
	store.failOn = 2

	svc := newTestService(store)
	statuses, err := svc.MeetingStatuses(context.Background(), []int64{1, 2, 3}, 42)
	if !apperr.IsKind(err, apperr.KindBatch) {
		t.Fatalf("expected batch error, got %v", err)
	}
	if statuses != nil {
		t.Fatalf("expected no partial results, got %v", statuses)
	}
}
