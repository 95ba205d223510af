// Package schedule ties a publish attempt to a point in time and tracks its
// outcome through a persisted status record.
package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crosspub/crosspub/internal/publish"
)

// Status is a schedule's lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusPublishing Status = "PUBLISHING"
	StatusPublished  Status = "PUBLISHED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions lists the legal status moves. PUBLISHED and CANCELLED are
// terminal; FAILED may re-enter PENDING, but only an external actor decides
// that. Nothing here retries automatically.
var transitions = map[Status][]Status{
	StatusPending:    {StatusPublishing, StatusCancelled},
	StatusPublishing: {StatusPublished, StatusFailed},
	StatusFailed:     {StatusPending},
}

// ErrInvalidTransition reports a forbidden status move.
type ErrInvalidTransition struct {
	From, To Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot move schedule from %s to %s", e.From, e.To)
}

// Schedule records one planned publish of one content record to one
// destination. The zero PublishedAt means not yet published.
type Schedule struct {
	ID          string
	ContentID   string
	Platform    publish.Platform
	PublishAt   time.Time
	Status      Status
	PublishedAt time.Time
	RetryCount  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds a PENDING schedule.
func New(contentID string, platform publish.Platform, publishAt time.Time) *Schedule {
	now := time.Now().UTC()
	return &Schedule{
		ID:        uuid.NewString(),
		ContentID: contentID,
		Platform:  platform,
		PublishAt: publishAt.UTC(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransition reports whether moving to the given status is legal.
func (s *Schedule) CanTransition(to Status) bool {
	for _, allowed := range transitions[s.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the schedule to a new status, stamping PublishedAt on
// success and counting failed attempts.
func (s *Schedule) Transition(to Status, now time.Time) error {
	if !s.CanTransition(to) {
		return ErrInvalidTransition{From: s.Status, To: to}
	}
	s.Status = to
	s.UpdatedAt = now.UTC()
	switch to {
	case StatusPublished:
		s.PublishedAt = now.UTC()
	case StatusFailed:
		s.RetryCount++
	}
	return nil
}

// Reschedule moves the publish time. Published schedules are immutable.
func (s *Schedule) Reschedule(publishAt, now time.Time) error {
	if s.Status != StatusPending {
		return fmt.Errorf("only PENDING schedules can be rescheduled, this one is %s", s.Status)
	}
	s.PublishAt = publishAt.UTC()
	s.UpdatedAt = now.UTC()
	return nil
}

// Due reports whether the schedule is ready to run at the given instant.
func (s *Schedule) Due(now time.Time) bool {
	return s.Status == StatusPending && !s.PublishAt.After(now)
}
