package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/attendance"
)

type AttendanceRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db, now: time.Now}
}

func (r *AttendanceRepo) CreateMeeting(ctx context.Context, m *attendance.Meeting) (int64, error) {
	m.CreatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO meetings (title, starts_at, created_at) VALUES (?, ?, ?)`,
		m.Title, m.StartsAt, m.CreatedAt)
	if err != nil {
		return 0, storeErr(err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return 0, storeErr(err)
	}
	return m.ID, nil
}

func (r *AttendanceRepo) GetMeeting(ctx context.Context, id int64) (*attendance.Meeting, error) {
	m := &attendance.Meeting{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, title, starts_at, created_at FROM meetings WHERE id = ?
    `, id).Scan(&m.ID, &m.Title, &m.StartsAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("meeting_not_found", "meeting not found", err)
		}
		return nil, storeErr(err)
	}
	return m, nil
}

func (r *AttendanceRepo) AttendeesByMeeting(ctx context.Context, meetingID int64) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT identity_id FROM attendance WHERE meeting_id = ?`, meetingID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, storeErr(err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, storeErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}

func (r *AttendanceRepo) RecordAttendance(ctx context.Context, rec *attendance.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO attendance (meeting_id, identity_id, created_at)
        VALUES (?, ?, ?)
    `, rec.MeetingID, rec.IdentityID.String(), rec.CreatedAt)
	if err != nil {
		return storeErr(err)
	}
	return nil
}
