package scanner

import (
	"context"
	"log/slog"
	"time"
)

const (
	staleRefetchEvery = 15 * time.Second
	staleGiveUpAfter  = 60 * time.Second
	refetchSlack      = 100 * time.Millisecond
	minFollowDelay    = time.Second
)

// Refresher decides when a scanner result should be fetched again. Fresh
// data expires at the server's freshUntil, or one refresh interval after
// asOf (or the fetch time). Stale data the server is revalidating is
// refetched every 15s for at most a minute.
type Refresher struct {
	Interval time.Duration

	staleSince time.Time
	gaveUp     bool
}

func NewRefresher(interval time.Duration) *Refresher {
	return &Refresher{Interval: max(time.Millisecond, interval)}
}

// Next returns the delay before the next fetch, or false when no automatic
// fetch should happen.
func (r *Refresher) Next(resp *Response, fetchedAt, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}

	if resp.Cache != nil && resp.Cache.IsStale {
		if !resp.Cache.WillRevalidate || r.gaveUp {
			return 0, false
		}
		if r.staleSince.IsZero() {
			r.staleSince = now
		}
		remaining := staleGiveUpAfter - now.Sub(r.staleSince)
		if remaining <= 0 {
			r.gaveUp = true
			return 0, false
		}
		return min(staleRefetchEvery, remaining), true
	}
	r.staleSince = time.Time{}
	r.gaveUp = false

	base := fetchedAt
	if resp.AsOf != nil {
		base = *resp.AsOf
	}
	if base.IsZero() {
		return 0, false
	}
	expires := base.Add(r.Interval)
	if resp.Cache != nil && resp.Cache.FreshUntil != nil {
		expires = *resp.Cache.FreshUntil
	}
	delay := expires.Sub(now)
	if delay <= 0 {
		return 0, true
	}
	return delay + refetchSlack, true
}

// GaveUp reports whether stale revalidation timed out.
func (r *Refresher) GaveUp() bool {
	return r.gaveUp
}

// Follow fetches, hands each result to emit and schedules the next fetch
// until ctx is done or no further fetch is due. Failed fetches are retried
// after one refresh interval.
func (r *Refresher) Follow(ctx context.Context, fetch func(context.Context) (*Response, error), emit func(*Response, error), logger *slog.Logger) error {
	for {
		resp, err := fetch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		emit(resp, err)

		now := time.Now()
		delay := r.Interval
		if err == nil {
			var ok bool
			delay, ok = r.Next(resp, now, now)
			if !ok {
				logger.Info("scanner auto-refresh stopped", "gave_up", r.gaveUp)
				return nil
			}
			delay = max(delay, minFollowDelay)
		} else {
			logger.Warn("scanner fetch failed", "err", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
