package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nuagevault/nuagevault/internal/tasks"
)

// Enqueuer schedules tasks (implemented by *asynq.Client)
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// StartSweepScheduler checks every minute whether the sweep is due per
// schedule and enqueues it. It blocks until ctx is cancelled.
func StartSweepScheduler(ctx context.Context, client Enqueuer, schedule string, logger zerolog.Logger) error {
	next, err := calculateNextRunTime(schedule, time.Now())
	if err != nil {
		return err
	}

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	logger.Info().Str("schedule", schedule).Time("next_run_at", next).Msg("Stale upload sweep scheduled")

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			next = checkAndEnqueueSweep(client, schedule, next, now, logger)
		}
	}
}

// checkAndEnqueueSweep enqueues the sweep when next has passed and returns
// the following run time
func checkAndEnqueueSweep(client Enqueuer, schedule string, next, now time.Time, logger zerolog.Logger) time.Time {
	if now.Before(next) {
		return next
	}

	// Unique keeps overlapping schedulers from piling up sweeps
	_, err := client.Enqueue(tasks.NewSweepStaleUploadsTask(),
		asynq.Queue(tasks.QueueLow),
		asynq.Unique(10*time.Minute),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to enqueue stale upload sweep")
	} else {
		logger.Debug().Msg("Stale upload sweep enqueued")
	}

	following, err := calculateNextRunTime(schedule, now)
	if err != nil {
		// Validated at startup
		return now.Add(time.Hour)
	}
	return following
}

// calculateNextRunTime calculates next run time from a cron schedule
func calculateNextRunTime(cronExpr string, from time.Time) (time.Time, error) {
	// Standard 5-field format: minute hour day-of-month month day-of-week
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid sweep schedule %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}
