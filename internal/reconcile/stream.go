package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/feeder/internal/feedingapi"
	"github.com/five82/feeder/internal/health"
	"github.com/five82/feeder/internal/logging"
	"github.com/five82/feeder/internal/metrics"
	"github.com/five82/feeder/internal/model"
)

const (
	defaultPollWait     = 25 * time.Second
	defaultRetryBackoff = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// Feed is the long-poll change feed.
type Feed interface {
	FetchChanges(ctx context.Context, since uint64, wait time.Duration) (feedingapi.ChangeBatch, error)
}

// StreamOptions configure a Stream.
type StreamOptions struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// Wait is how long the server may hold an empty poll open.
	Wait time.Duration
	// Backoff is the delay after the first failed poll; it doubles per
	// consecutive failure up to maxBackoff.
	Backoff time.Duration
	// Since is the initial cursor.
	Since uint64
	// Health, when set, records every poll outcome.
	Health *health.Tracker
}

// Stream turns the remote change feed into a channel of events.
type Stream struct {
	feed    Feed
	logger  *slog.Logger
	metrics metrics.Recorder
	wait    time.Duration
	backoff time.Duration
	since   uint64
	health  *health.Tracker
}

// NewStream builds a Stream over feed.
func NewStream(feed Feed, opts StreamOptions) *Stream {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Wait <= 0 {
		opts.Wait = defaultPollWait
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultRetryBackoff
	}
	return &Stream{
		feed:    feed,
		logger:  opts.Logger.With(slog.String("component", "stream")),
		metrics: opts.Metrics,
		wait:    opts.Wait,
		backoff: opts.Backoff,
		since:   opts.Since,
		health:  opts.Health,
	}
}

// Run polls the feed and sends each event to out in order until ctx is
// cancelled. It closes out before returning.
func (s *Stream) Run(ctx context.Context, out chan<- model.ChangeEvent) error {
	defer close(out)

	failures := 0
	for {
		batch, err := s.feed.FetchChanges(ctx, s.since, s.wait)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.health.Record(s.since, err)
			s.metrics.RecordStreamError()
			delay := calculateBackoff(failures, s.backoff)
			failures++
			s.logger.Warn("change poll failed",
				slog.String("error", err.Error()),
				slog.Int("failures", failures),
				slog.Duration("retry_in", delay),
			)
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}
		if failures > 0 {
			s.logger.Info("change poll recovered", slog.Int("failures", failures))
			failures = 0
		}

		for _, ev := range batch.Events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return nil
			}
		}
		if batch.Next > s.since {
			s.since = batch.Next
		}
		s.health.Record(s.since, nil)
	}
}

// Cursor returns the sequence the next poll resumes from. It is only
// meaningful once Run has returned.
func (s *Stream) Cursor() uint64 { return s.since }

// calculateBackoff doubles base per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	delay := base
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
