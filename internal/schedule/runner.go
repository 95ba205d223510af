package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/crosspub/crosspub/internal/logutil"
	"github.com/crosspub/crosspub/internal/publish"
)

// ContentSource resolves a schedule's content id into the content record.
type ContentSource func(ctx context.Context, contentID string) (*publish.ContentInput, error)

// CredentialSource resolves the credentials and publish config for a
// destination platform.
type CredentialSource func(platform publish.Platform) (publish.Credentials, publish.PlatformConfig, error)

// Outcome pairs a schedule with the result of its publish attempt.
type Outcome struct {
	Schedule *Schedule
	Result   publish.PublishResult
}

// Runner executes due schedules against the publisher. It is invoked by an
// external trigger (a cron tick or a user action) and performs exactly one
// attempt per due schedule; failed schedules stay FAILED until an operator
// re-enters them into PENDING.
type Runner struct {
	store     *Store
	publisher *publish.Publisher
	content   ContentSource
	creds     CredentialSource
}

// NewRunner wires a runner.
func NewRunner(store *Store, publisher *publish.Publisher, content ContentSource, creds CredentialSource) *Runner {
	return &Runner{store: store, publisher: publisher, content: content, creds: creds}
}

// RunDue executes every schedule due at now and returns their outcomes.
func (r *Runner) RunDue(ctx context.Context, now time.Time) ([]Outcome, error) {
	due, err := r.store.Due(now)
	if err != nil {
		return nil, fmt.Errorf("load due schedules: %w", err)
	}

	outcomes := make([]Outcome, 0, len(due))
	for _, sched := range due {
		outcomes = append(outcomes, r.RunOne(ctx, sched))
	}
	return outcomes, nil
}

// RunOne executes a single schedule: PENDING → PUBLISHING → PUBLISHED or
// FAILED. Any error along the way lands in the schedule's LastError.
func (r *Runner) RunOne(ctx context.Context, sched *Schedule) Outcome {
	now := time.Now().UTC()
	if err := sched.Transition(StatusPublishing, now); err != nil {
		return Outcome{Schedule: sched, Result: publish.Failure(sched.Platform, "%v", err)}
	}
	if err := r.store.Save(sched); err != nil {
		return Outcome{Schedule: sched, Result: publish.Failure(sched.Platform, "persist status: %v", err)}
	}

	result := r.attempt(ctx, sched)

	now = time.Now().UTC()
	if result.Success {
		if err := sched.Transition(StatusPublished, now); err != nil {
			logutil.Errorf("schedule %s: %v", sched.ID, err)
		}
		sched.LastError = ""
	} else {
		if err := sched.Transition(StatusFailed, now); err != nil {
			logutil.Errorf("schedule %s: %v", sched.ID, err)
		}
		sched.LastError = result.Error
	}
	if err := r.store.Save(sched); err != nil {
		logutil.Errorf("schedule %s: persist outcome: %v", sched.ID, err)
	}

	logutil.Infof("schedule %s: platform=%s success=%t", sched.ID, sched.Platform, result.Success)
	return Outcome{Schedule: sched, Result: result}
}

func (r *Runner) attempt(ctx context.Context, sched *Schedule) publish.PublishResult {
	content, err := r.content(ctx, sched.ContentID)
	if err != nil {
		return publish.Failure(sched.Platform, "load content %q: %v", sched.ContentID, err)
	}

	creds, cfg, err := r.creds(sched.Platform)
	if err != nil {
		return publish.Failure(sched.Platform, "resolve credentials: %v", err)
	}
	if err := r.publisher.AuthenticatePlatform(ctx, sched.Platform, creds); err != nil {
		return publish.Failure(sched.Platform, "%v", err)
	}

	return r.publisher.PublishToPlatform(ctx, sched.Platform, content, publish.AdaptOptions{}, cfg)
}

// Cancel moves a PENDING schedule to CANCELLED.
func (r *Runner) Cancel(id string) (*Schedule, error) {
	sched, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := sched.Transition(StatusCancelled, time.Now().UTC()); err != nil {
		return nil, err
	}
	return sched, r.store.Save(sched)
}

// Retry re-enters a FAILED schedule into PENDING. This is the only retry
// mechanism; there is no automatic backoff.
func (r *Runner) Retry(id string) (*Schedule, error) {
	sched, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := sched.Transition(StatusPending, time.Now().UTC()); err != nil {
		return nil, err
	}
	return sched, r.store.Save(sched)
}
