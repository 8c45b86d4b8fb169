package attendance

import (
	"context"

	"github.com/google/uuid"

	"clubgov/identity"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Attended reports whether any identity in the caller's union is on the
// meeting's attendance list.
func (s *Service) Attended(ctx context.Context, meetingID int64, mine identity.IDSet) (bool, error) {
	attendees, err := s.store.AttendeesByMeeting(ctx, meetingID)
	if err != nil {
		return false, err
	}
	for _, id := range attendees {
		if mine.Contains(id) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) Record(ctx context.Context, meetingID int64, identityID uuid.UUID) error {
	return s.store.RecordAttendance(ctx, &Record{
		MeetingID:  meetingID,
		IdentityID: identityID,
	})
}
