package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"clubgov/apperr"
	"clubgov/attendance"
)

type AttendanceRepo struct {
	db *sql.DB
}

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

func (r *AttendanceRepo) GetMeeting(ctx context.Context, id int64) (*attendance.Meeting, error) {
	m := &attendance.Meeting{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, title, starts_at, created_at
        FROM meetings WHERE id = $1
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
	rows, err := r.db.QueryContext(ctx, `
        SELECT identity_id
        FROM attendance
        WHERE meeting_id = $1
    `, meetingID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
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
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO attendance (meeting_id, identity_id)
        VALUES ($1, $2)
        ON CONFLICT (meeting_id, identity_id) DO NOTHING
    `, rec.MeetingID, rec.IdentityID)
	if err != nil {
		return storeErr(err)
	}
	return nil
}
