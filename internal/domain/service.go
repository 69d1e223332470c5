// Package domain defines the business logic for the social activities service.
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates a registration conflict.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNotHost is returned when a non-host attempts to modify an activity.
	ErrNotHost = errors.New("only the host may modify the activity")
	// ErrAlreadyAttending is returned on a duplicate join.
	ErrAlreadyAttending = errors.New("user is already attending")
	// ErrNotAttending is returned when leaving an activity the user never joined.
	ErrNotAttending = errors.New("user is not attending")
	// ErrHostCannotLeave prevents the host from abandoning their own activity.
	ErrHostCannotLeave = errors.New("host cannot leave their own activity")
)

// ActivityRepository captures persistence operations for activities and rosters.
type ActivityRepository interface {
	Create(ctx context.Context, activity Activity) error
	Update(ctx context.Context, activity Activity) error
	Delete(ctx context.Context, activityID, deletedBy string) error
	Get(ctx context.Context, activityID string) (*Activity, error)
	List(ctx context.Context, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
	AddAttendee(ctx context.Context, activityID string, attendee Attendee) error
	RemoveAttendee(ctx context.Context, activityID, username string) error
}

// UserRepository captures persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, user User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Cursor models the pagination token for activity listings.
type Cursor struct {
	Date time.Time
	ID   string
}

// Service orchestrates activity and account workflows.
type Service struct {
	activities ActivityRepository
	users      UserRepository
}

// NewService constructs a Service.
func NewService(activities ActivityRepository, users UserRepository) *Service {
	return &Service{activities: activities, users: users}
}

// CreateActivity persists a new activity with the creator as sole host attendee.
func (s *Service) CreateActivity(ctx context.Context, activity Activity, host User) (*Activity, error) {
	activity.Date = activity.Date.UTC()
	activity.Attendees = []Attendee{host.AsAttendee(true)}

	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}
	out := activity.ViewedBy(host.Username)
	return &out, nil
}

// EditActivity replaces the descriptive fields of an existing activity. Host only.
func (s *Service) EditActivity(ctx context.Context, activity Activity, username string) (*Activity, error) {
	current, err := s.getExisting(ctx, activity.ID)
	if err != nil {
		return nil, err
	}
	if host, ok := current.Host(); !ok || host.Username != username {
		return nil, ErrNotHost
	}

	activity.Date = activity.Date.UTC()
	activity.Attendees = current.Attendees
	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, err
	}
	out := activity.ViewedBy(username)
	return &out, nil
}

// DeleteActivity removes an activity. Host only.
func (s *Service) DeleteActivity(ctx context.Context, activityID, username string) error {
	current, err := s.getExisting(ctx, activityID)
	if err != nil {
		return err
	}
	if host, ok := current.Host(); !ok || host.Username != username {
		return ErrNotHost
	}
	return s.activities.Delete(ctx, activityID, username)
}

// GetActivity fetches by ID with viewer flags computed for username.
func (s *Service) GetActivity(ctx context.Context, activityID, username string) (*Activity, error) {
	current, err := s.getExisting(ctx, activityID)
	if err != nil {
		return nil, err
	}
	out := current.ViewedBy(username)
	return &out, nil
}

// ListActivities fetches activities with cursor pagination, viewer flags computed.
func (s *Service) ListActivities(ctx context.Context, username string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	activities, next, err := s.activities.List(ctx, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	out := make([]Activity, 0, len(activities))
	for _, activity := range activities {
		out = append(out, activity.ViewedBy(username))
	}
	return out, next, nil
}

// JoinActivity adds the user to the roster.
func (s *Service) JoinActivity(ctx context.Context, activityID string, user User) (*Activity, error) {
	current, err := s.getExisting(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if current.HasAttendee(user.Username) {
		return nil, ErrAlreadyAttending
	}
	if err := s.activities.AddAttendee(ctx, activityID, user.AsAttendee(false)); err != nil {
		return nil, err
	}
	current.Attendees = append(current.Attendees, user.AsAttendee(false))
	out := current.ViewedBy(user.Username)
	return &out, nil
}

// LeaveActivity removes the user from the roster. The host may not leave.
func (s *Service) LeaveActivity(ctx context.Context, activityID, username string) (*Activity, error) {
	current, err := s.getExisting(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !current.HasAttendee(username) {
		return nil, ErrNotAttending
	}
	if host, ok := current.Host(); ok && host.Username == username {
		return nil, ErrHostCannotLeave
	}
	if err := s.activities.RemoveAttendee(ctx, activityID, username); err != nil {
		return nil, err
	}

	kept := current.Attendees[:0]
	for _, att := range current.Attendees {
		if att.Username != username {
			kept = append(kept, att)
		}
	}
	current.Attendees = kept
	out := current.ViewedBy(username)
	return &out, nil
}

// RegisterUser persists a new account. The password hash is computed by the caller.
func (s *Service) RegisterUser(ctx context.Context, user User) error {
	existing, err := s.users.GetByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}
	return s.users.Create(ctx, user)
}

// GetUser fetches an account by username.
func (s *Service) GetUser(ctx context.Context, username string) (*User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail fetches an account by email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) getExisting(ctx context.Context, activityID string) (*Activity, error) {
	current, err := s.activities.Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrActivityNotFound
	}
	return current, nil
}
