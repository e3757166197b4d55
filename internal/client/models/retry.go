package models

import "time"

// RetryPolicy schedules retries of transient failures.
type RetryPolicy struct {
	// MaxAttempts is the number of failed attempts after which an entry is
	// marked Failed. Zero means unlimited.
	MaxAttempts uint32
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy retries up to five times, waiting 2s, 4s, 8s... capped at 5m.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 5 * time.Minute}
}

// Delay returns the wait before the next attempt after attempts failures.
func (p RetryPolicy) Delay(attempts uint32) time.Duration {
	if attempts == 0 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := uint32(1); i < attempts && d < time.Duration(1)<<61; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Exhausted reports whether attempts failures use up the budget.
func (p RetryPolicy) Exhausted(attempts uint32) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

// FailurePatch records one more failed attempt of an Uploading entry that
// had already failed attempts times. It returns the patch and the status the
// entry ends up in: Pending with a backoff when the failure is retryable and
// the budget allows, Failed otherwise.
func (p RetryPolicy) FailurePatch(attempts uint32, retryable bool, cause error, now time.Time) (Patch, Status) {
	n := attempts + 1
	patch := Patch{}.SetAttempts(n).SetLastError(cause.Error()).When(StatusUploading)

	if retryable && !p.Exhausted(n) {
		return patch.SetStatus(StatusPending).SetNextAttemptAt(now.Add(p.Delay(n))), StatusPending
	}
	return patch.SetStatus(StatusFailed), StatusFailed
}

// Outcome reports what processing one queue entry did.
type Outcome struct {
	ID     string
	Entity Entity
	// Status is Done when the entry was applied and removed, Pending when a
	// retry is scheduled and Failed when it needs user attention.
	Status Status
	// Skipped is set when the entry was no longer eligible: claimed
	// elsewhere, collapsed away or discarded.
	Skipped bool
	// Err is the remote failure, nil on success.
	Err error
	// Transient is set when Err will be retried.
	Transient bool
}
