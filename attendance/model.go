package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Meeting struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Record marks one identity present at one meeting. Like votes, records
// are keyed by identity, so attendance survives identity rotation.
type Record struct {
	MeetingID  int64     `json:"meeting_id"`
	IdentityID uuid.UUID `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store interface {
	GetMeeting(ctx context.Context, id int64) (*Meeting, error)
	AttendeesByMeeting(ctx context.Context, meetingID int64) ([]uuid.UUID, error)
	// RecordAttendance is idempotent per (meeting, identity).
	RecordAttendance(ctx context.Context, rec *Record) error
}
