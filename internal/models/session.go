package models

import "time"

// SessionStatus is the lifecycle state of a booking.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusOngoing   SessionStatus = "ongoing"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// CanTransition reports whether the state machine permits moving from one
// status to another. The only legal edges are scheduled→ongoing,
// scheduled→cancelled, and ongoing→completed. An ongoing session cannot be
// cancelled: it must be ended. completed and cancelled are terminal.
func CanTransition(from, to SessionStatus) bool {
	switch from {
	case StatusScheduled:
		return to == StatusOngoing || to == StatusCancelled
	case StatusOngoing:
		return to == StatusCompleted
	}
	return false
}

// Session is a booking between one client and one therapist. It references
// both parties by id and does not own them.
type Session struct {
	ID              int64         `json:"id"`
	ClientID        int64         `json:"client_id"`
	TherapistID     int64         `json:"therapist_id"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	// ChannelName binds the session to its media-transport room. Assigned
	// the first time the session starts and immutable afterwards.
	ChannelName string    `json:"channel_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsParticipant reports whether the given party is the session's client or
// therapist.
func (s *Session) IsParticipant(partyID int64) bool {
	return partyID == s.ClientID || partyID == s.TherapistID
}
