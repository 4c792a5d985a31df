package offline

import "time"

const maxBackoff = 24 * time.Hour

// RetryPolicy bounds replay of failing requests. The zero value retries
// every request on every pass, without limit or delay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) expired(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

// nextAttempt returns the epoch-ms time after which a request that has
// failed attempts times is due again, or zero for immediately.
func (p RetryPolicy) nextAttempt(now time.Time, attempts int) int64 {
	if p.BaseDelay <= 0 || attempts <= 0 {
		return 0
	}
	ceiling := maxBackoff
	if p.MaxDelay > 0 && p.MaxDelay < ceiling {
		ceiling = p.MaxDelay
	}

	delay := p.BaseDelay
	for i := 1; i < attempts && delay < ceiling; i++ {
		delay *= 2
	}
	if delay > ceiling {
		delay = ceiling
	}
	return now.Add(delay).UnixMilli()
}
