package detect

import (
	"context"
	"time"
)

// Default poll intervals.
const (
	PixelPollInterval  = 50 * time.Millisecond
	ChangePollInterval = 100 * time.Millisecond
	FindPollInterval   = 100 * time.Millisecond
)

// Sleep waits for d or until ctx is done, whichever comes first. It reports
// false if the context was cancelled before or during the wait.
func Sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	return ctx.Err() == nil
}

// Poll calls attempt until it reports done, the timeout elapses or ctx is
// cancelled. A timeout <= 0 means poll until cancelled. attempt always runs
// at least once unless ctx is already cancelled. Poll reports whether
// attempt succeeded; a non-nil error from attempt stops polling.
func Poll(ctx context.Context, timeout, interval time.Duration, attempt func() (bool, error)) (bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if ctx.Err() != nil {
			return false, nil
		}
		ok, err := attempt()
		if err != nil || ok {
			return ok, err
		}
		wait := interval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false, nil
			}
			if remaining < wait {
				wait = remaining
			}
		}
		if !Sleep(ctx, wait) {
			return false, nil
		}
	}
}
