package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/identity"
)

type IdentityRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{db: db, now: time.Now}
}

// CreateIdentity inserts a new identity and links it to the user from now
// on. History rows are only ever added, never removed.
func (r *IdentityRepo) CreateIdentity(ctx context.Context, userID int64, name string) (*identity.Identity, error) {
	rec := &identity.Identity{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: r.now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO identities (id, name, created_at) VALUES (?, ?, ?)`,
		rec.ID.String(), rec.Name, rec.CreatedAt); err != nil {
		return nil, storeErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO identity_history (user_id, identity_id, valid_from) VALUES (?, ?, ?)`,
		userID, rec.ID.String(), rec.CreatedAt); err != nil {
		return nil, storeErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return rec, nil
}

func (r *IdentityRepo) HistoryByUser(ctx context.Context, userID int64) ([]identity.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id, identity_id, valid_from
        FROM identity_history
        WHERE user_id = ?
        ORDER BY valid_from
    `, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var entries []identity.HistoryEntry
	for rows.Next() {
		var e identity.HistoryEntry
		var id string
		if err := rows.Scan(&e.UserID, &id, &e.ValidFrom); err != nil {
			return nil, storeErr(err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, storeErr(err)
		}
		e.IdentityID = parsed
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
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, created_at
        FROM identities
        WHERE id IN (`+placeholders(len(ids))+`)
    `, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []identity.Identity
	for rows.Next() {
		var rec identity.Identity
		var id string
		if err := rows.Scan(&id, &rec.Name, &rec.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, storeErr(err)
		}
		rec.ID = parsed
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (r *IdentityRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET name = ? WHERE id = ?`, name, id.String())
	if err != nil {
		return storeErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("identity_not_found", "identity not found", nil)
	}
	return nil
}
