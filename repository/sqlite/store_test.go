package sqlite

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/attendance"
	"clubgov/ballot"
	"clubgov/identity"
	"clubgov/results"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBallotLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewBallotRepo(db)
	ctx := context.Background()

	b := &ballot.Ballot{
		Question: "venue",
		ClosesAt: time.Now().Add(time.Hour).UTC(),
		Options: []ballot.Option{
			{Index: 1, Text: "clubhouse"},
			{Index: 2, Text: "park"},
		},
	}
	id, err := repo.Create(ctx, b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Question != "venue" || len(got.Options) != 2 {
		t.Fatalf("unexpected ballot %+v", got)
	}
	if got.Options[0].Index != 1 || got.Options[1].Index != 2 {
		t.Fatalf("options out of order: %+v", got.Options)
	}

	if _, err := repo.GetByID(ctx, id+1); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCastVoteIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewBallotRepo(db)
	idrepo := NewIdentityRepo(db)
	ctx := context.Background()

	ballotID := createBallot(t, repo, 3)
	voter, err := idrepo.CreateIdentity(ctx, 1, "heron")
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}

	v := &ballot.Vote{BallotID: ballotID, OptionIndex: 2, IdentityID: voter.ID}
	if err := repo.CastVote(ctx, v); err != nil {
		t.Fatalf("cast: %v", err)
	}
	if err := repo.CastVote(ctx, v); err != nil {
		t.Fatalf("repeat cast: %v", err)
	}

	votes, err := repo.VotesByBallot(ctx, ballotID)
	if err != nil {
		t.Fatalf("votes: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("expected one stored vote, got %d", len(votes))
	}
	if votes[0].IdentityID != voter.ID || votes[0].OptionIndex != 2 {
		t.Fatalf("unexpected vote %+v", votes[0])
	}

	mine, err := repo.VotesByIdentities(ctx, ballotID, []uuid.UUID{voter.ID, uuid.New()})
	if err != nil {
		t.Fatalf("votes by identities: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected one matching vote, got %d", len(mine))
	}
}

func TestIdentityHistoryAppendOnly(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdentityRepo(db)
	ctx := context.Background()

	first, err := repo.CreateIdentity(ctx, 7, "heron")
	if err != nil {
		t.Fatalf("first identity: %v", err)
	}
	second, err := repo.CreateIdentity(ctx, 7, "kingfisher")
	if err != nil {
		t.Fatalf("second identity: %v", err)
	}

	entries, err := repo.HistoryByUser(ctx, 7)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(entries))
	}
	if entries[0].IdentityID != first.ID || entries[1].IdentityID != second.ID {
		t.Fatalf("history out of order: %+v", entries)
	}

	if err := repo.Rename(ctx, first.ID, "bittern"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	recs, err := repo.GetMany(ctx, []uuid.UUID{first.ID})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "bittern" {
		t.Fatalf("rename not stored: %+v", recs)
	}

	if err := repo.Rename(ctx, uuid.New(), "x"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestAttendanceIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewAttendanceRepo(db)
	idrepo := NewIdentityRepo(db)
	ctx := context.Background()

	m := &attendance.Meeting{Title: "assembly", StartsAt: time.Now().UTC()}
	if _, err := repo.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	rec, err := idrepo.CreateIdentity(ctx, 1, "heron")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := repo.RecordAttendance(ctx, &attendance.Record{
			MeetingID:  m.ID,
			IdentityID: rec.ID,
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	attendees, err := repo.AttendeesByMeeting(ctx, m.ID)
	if err != nil {
		t.Fatalf("attendees: %v", err)
	}
	if len(attendees) != 1 || attendees[0] != rec.ID {
		t.Fatalf("unexpected attendees %v", attendees)
	}
}

func TestIncrementAggregate(t *testing.T) {
	db := openTestDB(t)
	repo := NewBallotRepo(db)
	ctx := context.Background()

	ballotID := createBallot(t, repo, 2)
	for i := 0; i < 3; i++ {
		if err := repo.IncrementAggregate(ctx, ballotID, 1); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	var count uint64
	err := db.QueryRow(
		`SELECT votes_count FROM aggregated_results WHERE ballot_id = ? AND option_idx = 1`,
		ballotID).Scan(&count)
	if err != nil {
		t.Fatalf("read aggregate: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected aggregate 3, got %d", count)
	}
}

// End to end: identity rotation, votes, and tabulation over the embedded
// store through the results facade.
func TestTabulationOverEmbeddedStore(t *testing.T) {
	db := openTestDB(t)
	ballots := NewBallotRepo(db)
	ids := NewIdentityRepo(db)
	att := NewAttendanceRepo(db)
	ctx := context.Background()

	ballotID := createBallot(t, ballots, 3)

	old, err := ids.CreateIdentity(ctx, 42, "heron")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if _, err := ids.CreateIdentity(ctx, 42, "kingfisher"); err != nil {
		t.Fatalf("rotation: %v", err)
	}

	cast := func(idx uint8, voter uuid.UUID) {
		t.Helper()
		err := ballots.CastVote(ctx, &ballot.Vote{
			BallotID: ballotID, OptionIndex: idx, IdentityID: voter,
		})
		if err != nil {
			t.Fatalf("cast: %v", err)
		}
	}

	cast(1, old.ID)
	for i := 0; i < 2; i++ {
		other, err := ids.CreateIdentity(ctx, int64(100+i), "member")
		if err != nil {
			t.Fatalf("identity: %v", err)
		}
		cast(2, other.ID)
	}

	svc := results.NewService(ballots, identity.NewService(ids), attendance.NewService(att))
	res, err := svc.Compute(ctx, ballotID, 42)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if res.TotalCount != 3 || res.IdentityCount != 3 {
		t.Fatalf("counts: total=%d identities=%d", res.TotalCount, res.IdentityCount)
	}
	if len(res.MyVotes) != 1 || res.MyVotes[0] != 1 {
		t.Fatalf("myVotes after rotation: got %v, want [1]", res.MyVotes)
	}

	var sum float64
	for _, or := range res.Options {
		sum += or.Percentage
	}
	if math.Abs(sum-100.00) > 1e-9 {
		t.Fatalf("percentages sum to %v, want 100.00", sum)
	}
}

func createBallot(t *testing.T, repo *BallotRepo, optionCount int) int64 {
	t.Helper()
	b := &ballot.Ballot{
		Question: "q",
		ClosesAt: time.Now().Add(time.Hour).UTC(),
	}
	for i := 1; i <= optionCount; i++ {
		b.Options = append(b.Options, ballot.Option{Index: uint8(i), Text: "opt"})
	}
	id, err := repo.Create(context.Background(), b)
	if err != nil {
		t.Fatalf("create ballot: %v", err)
	}
	return id
}
