package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/crosspub/crosspub/internal/publish"
)

func TestNewSchedule(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := New("post.md", publish.DevTo, at)

	if sched.ID == "" {
		t.Error("missing id")
	}
	if sched.Status != StatusPending {
		t.Errorf("Status = %s, want PENDING", sched.Status)
	}
	if !sched.PublishAt.Equal(at) {
		t.Errorf("PublishAt = %v, want %v", sched.PublishAt, at)
	}
	if !sched.PublishedAt.IsZero() {
		t.Error("PublishedAt set before publishing")
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"pending to publishing", StatusPending, StatusPublishing, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to published", StatusPending, StatusPublished, false},
		{"publishing to published", StatusPublishing, StatusPublished, true},
		{"publishing to failed", StatusPublishing, StatusFailed, true},
		{"publishing to cancelled", StatusPublishing, StatusCancelled, false},
		{"failed to pending", StatusFailed, StatusPending, true},
		{"failed to publishing", StatusFailed, StatusPublishing, false},
		{"published is terminal", StatusPublished, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := New("post.md", publish.DevTo, time.Now())
			sched.Status = tt.from

			err := sched.Transition(tt.to, time.Now())
			if tt.ok && err != nil {
				t.Errorf("Transition(%s -> %s) = %v, want nil", tt.from, tt.to, err)
			}
			if !tt.ok {
				var invalid ErrInvalidTransition
				if !errors.As(err, &invalid) {
					t.Errorf("Transition(%s -> %s) = %v, want ErrInvalidTransition", tt.from, tt.to, err)
				}
			}
		})
	}
}

func TestTransitionStampsPublishedAt(t *testing.T) {
	sched := New("post.md", publish.Hashnode, time.Now())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := sched.Transition(StatusPublishing, now); err != nil {
		t.Fatal(err)
	}
	if err := sched.Transition(StatusPublished, now); err != nil {
		t.Fatal(err)
	}
	if !sched.PublishedAt.Equal(now) {
		t.Errorf("PublishedAt = %v, want %v", sched.PublishedAt, now)
	}
}

func TestTransitionCountsFailures(t *testing.T) {
	sched := New("post.md", publish.Bluesky, time.Now())
	now := time.Now().UTC()

	for want := 1; want <= 2; want++ {
		if err := sched.Transition(StatusPublishing, now); err != nil {
			t.Fatal(err)
		}
		if err := sched.Transition(StatusFailed, now); err != nil {
			t.Fatal(err)
		}
		if sched.RetryCount != want {
			t.Errorf("RetryCount = %d, want %d", sched.RetryCount, want)
		}
		if err := sched.Transition(StatusPending, now); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReschedule(t *testing.T) {
	sched := New("post.md", publish.Mastodon, time.Now())
	later := time.Now().Add(24 * time.Hour).UTC()

	if err := sched.Reschedule(later, time.Now()); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !sched.PublishAt.Equal(later) {
		t.Errorf("PublishAt = %v, want %v", sched.PublishAt, later)
	}

	sched.Status = StatusPublished
	if err := sched.Reschedule(later, time.Now()); err == nil {
		t.Error("published schedule accepted a reschedule")
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		status    Status
		publishAt time.Time
		want      bool
	}{
		{"pending and past", StatusPending, now.Add(-time.Minute), true},
		{"pending exactly now", StatusPending, now, true},
		{"pending but future", StatusPending, now.Add(time.Minute), false},
		{"failed and past", StatusFailed, now.Add(-time.Minute), false},
		{"cancelled and past", StatusCancelled, now.Add(-time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := New("post.md", publish.DevTo, tt.publishAt)
			sched.Status = tt.status
			if got := sched.Due(now); got != tt.want {
				t.Errorf("Due = %v, want %v", got, tt.want)
			}
		})
	}
}
