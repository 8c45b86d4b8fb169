package sqlite

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
	db  *sql.DB
	now func() time.Time
}

func NewBallotRepo(db *sql.DB) *BallotRepo {
	return &BallotRepo{db: db, now: time.Now}
}

func (r *BallotRepo) Create(ctx context.Context, b *ballot.Ballot) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(err)
	}
	defer tx.Rollback()

	b.CreatedAt = r.now().UTC()
	res, err := tx.ExecContext(ctx, `
        INSERT INTO ballots (question, description, anonymous, multi_select, closes_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, b.Question, b.Description, b.Anonymous, b.MultiSelect, b.ClosesAt, b.CreatedAt)
	if err != nil {
		return 0, storeErr(err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return 0, storeErr(err)
	}

	for i := range b.Options {
		b.Options[i].BallotID = b.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO options (ballot_id, idx, text) VALUES (?, ?, ?)`,
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
        FROM ballots WHERE id = ?
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
        SELECT ballot_id, idx, text FROM options WHERE ballot_id = ? ORDER BY idx
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
		`DELETE FROM options WHERE ballot_id = ?`, ballotID); err != nil {
		return storeErr(err)
	}
	for _, o := range options {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO options (ballot_id, idx, text) VALUES (?, ?, ?)`,
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
		`UPDATE ballots SET closes_at = ? WHERE id = ?`, closesAt, id)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("ballot_not_found", "ballot not found", nil)
	}
	return nil
}

func (r *BallotRepo) VotesByBallot(ctx context.Context, ballotID int64) ([]ballot.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT ballot_id, option_idx, identity_id, created_at
        FROM votes WHERE ballot_id = ?
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
	args := make([]any, 0, len(ids)+1)
	args = append(args, ballotID)
	for _, id := range ids {
		args = append(args, id.String())
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT ballot_id, option_idx, identity_id, created_at
        FROM votes WHERE ballot_id = ? AND identity_id IN (`+placeholders(len(ids))+`)
    `, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	return scanVotes(rows)
}

func (r *BallotRepo) CastVote(ctx context.Context, v *ballot.Vote) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO votes (ballot_id, option_idx, identity_id, created_at)
        VALUES (?, ?, ?, ?)
    `, v.BallotID, v.OptionIndex, v.IdentityID.String(), v.CreatedAt)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *BallotRepo) IncrementAggregate(ctx context.Context, ballotID int64, optionIndex uint8) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO aggregated_results (ballot_id, option_idx, votes_count, updated_at)
        VALUES (?, ?, 1, ?)
        ON CONFLICT (ballot_id, option_idx) DO UPDATE
        SET votes_count = votes_count + 1, updated_at = excluded.updated_at
    `, ballotID, optionIndex, r.now().UTC())
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func scanVotes(rows *sql.Rows) ([]ballot.Vote, error) {
	var votes []ballot.Vote
	for rows.Next() {
		var v ballot.Vote
		var id string
		if err := rows.Scan(&v.BallotID, &v.OptionIndex, &id, &v.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, storeErr(err)
		}
		v.IdentityID = parsed
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return votes, nil
}
