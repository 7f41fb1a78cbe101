package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mindwell/internal/models"
)

// Service owns session booking and lifecycle. It is the only component that
// writes session status or channel identity.
type Service struct {
	db    *sql.DB
	locks *therapistLocks
}

// NewService builds a scheduling service over the shared session store.
func NewService(db *sql.DB) *Service {
	return &Service{db: db, locks: newTherapistLocks()}
}

// GetParty loads a user record by id.
func (s *Service) GetParty(ctx context.Context, id int64) (*models.Party, error) {
	var p models.Party
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query party: %w", err)
	}
	return &p, nil
}

// ScheduleSession validates a booking request and creates the session, or
// rejects it with a conflict. The conflict scan and the insert run under a
// per-therapist lock so that at most one of two racing requests for
// overlapping windows can succeed.
func (s *Service) ScheduleSession(ctx context.Context, clientID, therapistID int64, start, end time.Time, durationMinutes int) (*models.Session, error) {
	requested, err := NewInterval(start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		return nil, ErrInvalidInterval
	}
	// start/end are authoritative; a stale duration is recomputed rather
	// than rejected.
	if window := int(requested.End.Sub(requested.Start).Minutes()); durationMinutes != window {
		durationMinutes = window
	}

	therapist, err := s.GetParty(ctx, therapistID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidParty
		}
		return nil, err
	}
	if therapist.Role != models.RoleTherapist {
		return nil, ErrInvalidParty
	}

	lock := s.locks.acquire(therapistID)
	defer lock.Unlock()

	booked, err := s.activeIntervals(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	for _, iv := range booked {
		if Overlaps(requested, iv) {
			return nil, ErrSchedulingConflict
		}
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (client_id, therapist_id, start_time, end_time, duration_minutes, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		clientID, therapistID, requested.Start, requested.End, durationMinutes, models.StatusScheduled, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	return &models.Session{
		ID:              id,
		ClientID:        clientID,
		TherapistID:     therapistID,
		StartTime:       requested.Start,
		EndTime:         requested.End,
		DurationMinutes: durationMinutes,
		Status:          models.StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// activeIntervals returns the windows of the therapist's scheduled and
// ongoing sessions.
func (s *Service) activeIntervals(ctx context.Context, therapistID int64) ([]Interval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_time, end_time FROM sessions WHERE therapist_id = ? AND status IN (?, ?)`,
		therapistID, models.StatusScheduled, models.StatusOngoing,
	)
	if err != nil {
		return nil, fmt.Errorf("query therapist sessions: %w", err)
	}
	defer rows.Close()

	var intervals []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan session window: %w", err)
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// GetSession loads one session by id.
func (s *Service) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, therapist_id, start_time, end_time, duration_minutes, status, channel_name, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	)
	return scanSession(row)
}

// MySessions returns the caller's sessions sorted by start time. A therapist
// sees sessions where they are the therapist party; everyone else sees the
// client side.
func (s *Service) MySessions(ctx context.Context, callerID int64) ([]models.Session, error) {
	caller, err := s.GetParty(ctx, callerID)
	if err != nil {
		return nil, err
	}
	column := "client_id"
	if caller.Role == models.RoleTherapist {
		column = "therapist_id"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, therapist_id, start_time, end_time, duration_minutes, status, channel_name, created_at, updated_at
		 FROM sessions WHERE `+column+` = ? ORDER BY start_time ASC`,
		callerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		var channel sql.NullString
		if err := rows.Scan(&sess.ID, &sess.ClientID, &sess.TherapistID, &sess.StartTime, &sess.EndTime,
			&sess.DurationMinutes, &sess.Status, &channel, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.ChannelName = channel.String
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// StartSession moves a scheduled session to ongoing and returns it together
// with its channel identity, assigning the identity on first start.
func (s *Service) StartSession(ctx context.Context, sessionID, callerID int64) (*models.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParticipant(callerID) {
		return nil, ErrUnauthorized
	}
	if !models.CanTransition(sess.Status, models.StatusOngoing) {
		return nil, ErrInvalidStateTransition
	}

	if sess.ChannelName == "" {
		sess.ChannelName = fmt.Sprintf("session-%d-%s", sess.ID, uuid.NewString())
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, channel_name = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.StatusOngoing, sess.ChannelName, now, sess.ID, models.StatusScheduled,
	)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if err := requireTransition(res); err != nil {
		return nil, err
	}
	sess.Status = models.StatusOngoing
	sess.UpdatedAt = now
	return sess, nil
}

// EndSession moves an ongoing session to completed. The channel identity is
// retained for audit history.
func (s *Service) EndSession(ctx context.Context, sessionID, callerID int64) (*models.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParticipant(callerID) {
		return nil, ErrUnauthorized
	}
	if !models.CanTransition(sess.Status, models.StatusCompleted) {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.StatusCompleted, now, sess.ID, models.StatusOngoing,
	)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if err := requireTransition(res); err != nil {
		return nil, err
	}
	sess.Status = models.StatusCompleted
	sess.UpdatedAt = now
	return sess, nil
}

// CancelSession moves a scheduled session to cancelled. Participants and
// admins may cancel; an ongoing session cannot be cancelled and must be
// ended instead.
func (s *Service) CancelSession(ctx context.Context, sessionID, callerID int64) (*models.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParticipant(callerID) {
		caller, err := s.GetParty(ctx, callerID)
		if err != nil || caller.Role != models.RoleAdmin {
			return nil, ErrUnauthorized
		}
	}
	if !models.CanTransition(sess.Status, models.StatusCancelled) {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.StatusCancelled, now, sess.ID, models.StatusScheduled,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel session: %w", err)
	}
	if err := requireTransition(res); err != nil {
		return nil, err
	}
	sess.Status = models.StatusCancelled
	sess.UpdatedAt = now
	return sess, nil
}

// requireTransition maps a status-conditional update that matched no row to
// ErrInvalidStateTransition. The prior status in the WHERE clause makes the
// write the arbiter when two callers race past the in-memory guard.
func requireTransition(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidStateTransition
	}
	return nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var sess models.Session
	var channel sql.NullString
	err := row.Scan(&sess.ID, &sess.ClientID, &sess.TherapistID, &sess.StartTime, &sess.EndTime,
		&sess.DurationMinutes, &sess.Status, &channel, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess.ChannelName = channel.String
	return &sess, nil
}
