package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/identity"
)

type IdentityRepo struct {
	db *sql.DB
}

func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) HistoryByUser(ctx context.Context, userID int64) ([]identity.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id, identity_id, valid_from
        FROM identity_history
        WHERE user_id = $1
        ORDER BY valid_from
    `, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var entries []identity.HistoryEntry
	for rows.Next() {
		var e identity.HistoryEntry
		if err := rows.Scan(&e.UserID, &e.IdentityID, &e.ValidFrom); err != nil {
			return nil, storeErr(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

func (r *IdentityRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]identity.Identity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, created_at
        FROM identities
        WHERE id = ANY($1::uuid[])
    `, uuidStrings(ids))
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []identity.Identity
	for rows.Next() {
		var rec identity.Identity
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (r *IdentityRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("identity_not_found", "identity not found", nil)
	}
	return nil
}
