package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/ballot"
)

type BallotRepo struct {
	db *sql.DB
}

func NewBallotRepo(db *sql.DB) *BallotRepo {
	return &BallotRepo{db: db}
}

func (r *BallotRepo) Create(ctx context.Context, b *ballot.Ballot) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(err)
	}
	defer tx.Rollback()

	queryBallot := `
        INSERT INTO ballots (question, description, anonymous, multi_select, closes_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err = tx.QueryRowContext(ctx, queryBallot,
		b.Question,
		b.Description,
		b.Anonymous,
		b.MultiSelect,
		b.ClosesAt,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return 0, storeErr(err)
	}

	queryOpt := `
        INSERT INTO options (ballot_id, idx, text)
        VALUES ($1, $2, $3)
    `
	for i := range b.Options {
		b.Options[i].BallotID = b.ID
		if _, err := tx.ExecContext(ctx, queryOpt,
			b.ID, b.Options[i].Index, b.Options[i].Text); err != nil {
			return 0, storeErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr(err)
	}
	return b.ID, nil
}

func (r *BallotRepo) GetByID(ctx context.Context, id int64) (*ballot.Ballot, error) {
	b := &ballot.Ballot{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, question, description, anonymous, multi_select, closes_at, created_at
        FROM ballots WHERE id = $1
    `, id).Scan(
		&b.ID, &b.Question, &b.Description, &b.Anonymous,
		&b.MultiSelect, &b.ClosesAt, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("ballot_not_found", "ballot not found", err)
		}
		return nil, storeErr(err)
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT ballot_id, idx, text
        FROM options WHERE ballot_id = $1
        ORDER BY idx
    `, id)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var o ballot.Option
		if err := rows.Scan(&o.BallotID, &o.Index, &o.Text); err != nil {
			return nil, storeErr(err)
		}
		b.Options = append(b.Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return b, nil
}

func (r *BallotRepo) ReplaceOptions(ctx context.Context, ballotID int64, options []ballot.Option) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM options WHERE ballot_id = $1`, ballotID); err != nil {
		return storeErr(err)
	}
	for _, o := range options {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO options (ballot_id, idx, text) VALUES ($1, $2, $3)`,
			ballotID, o.Index, o.Text); err != nil {
			return storeErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *BallotRepo) Close(ctx context.Context, id int64, closesAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ballots SET closes_at = $1 WHERE id = $2`, closesAt, id)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("ballot_not_found", "ballot not found", nil)
	}
	return nil
}

// VotesByBallot reads the whole vote set in one statement, so every option
// sees the same snapshot.
func (r *BallotRepo) VotesByBallot(ctx context.Context, ballotID int64) ([]ballot.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT ballot_id, option_idx, identity_id, created_at
        FROM votes WHERE ballot_id = $1
    `, ballotID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanVotes(rows)
}

func (r *BallotRepo) VotesByIdentities(ctx context.Context, ballotID int64, ids []uuid.UUID) ([]ballot.Vote, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT ballot_id, option_idx, identity_id, created_at
        FROM votes WHERE ballot_id = $1 AND identity_id = ANY($2::uuid[])
    `, ballotID, uuidStrings(ids))
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanVotes(rows)
}

// CastVote relies on the composite primary key for idempotency: casting
// the same (option, identity) twice leaves a single stored vote.
func (r *BallotRepo) CastVote(ctx context.Context, v *ballot.Vote) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO votes (ballot_id, option_idx, identity_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (ballot_id, option_idx, identity_id) DO NOTHING
    `, v.BallotID, v.OptionIndex, v.IdentityID)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *BallotRepo) IncrementAggregate(ctx context.Context, ballotID int64, optionIndex uint8) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO aggregated_results (ballot_id, option_idx, votes_count)
        VALUES ($1, $2, 1)
        ON CONFLICT (ballot_id, option_idx) DO UPDATE
        SET votes_count = aggregated_results.votes_count + 1,
            updated_at = now()
    `, ballotID, optionIndex)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *BallotRepo) AggregatedByBallot(ctx context.Context, ballotID int64) (map[uint8]uint64, uint64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT option_idx, votes_count
        FROM aggregated_results
        WHERE ballot_id = $1
    `, ballotID)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	defer rows.Close()

	res := make(map[uint8]uint64)
	var total uint64
	for rows.Next() {
		var idx uint8
		var c uint64
		if err := rows.Scan(&idx, &c); err != nil {
			return nil, 0, storeErr(err)
		}
		res[idx] = c
		total += c
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr(err)
	}
	return res, total, nil
}

func scanVotes(rows *sql.Rows) ([]ballot.Vote, error) {
	var votes []ballot.Vote
	for rows.Next() {
		var v ballot.Vote
		if err := rows.Scan(&v.BallotID, &v.OptionIndex, &v.IdentityID, &v.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return votes, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
