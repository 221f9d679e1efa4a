package preview

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Linear is a backoff.BackOff that waits Step, 2*Step, 3*Step, ...
type Linear struct {
	Step time.Duration
	n    int64
}

func (l *Linear) NextBackOff() time.Duration {
	l.n++
	return time.Duration(l.n) * l.Step
}

func (l *Linear) Reset() { l.n = 0 }

// RetryPolicy is the preview retry schedule: linear steps, at most
// maxRetries of them. Zero or negative maxRetries disables retry.
func RetryPolicy(step time.Duration, maxRetries int) backoff.BackOff {
	if maxRetries <= 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(&Linear{Step: step}, uint64(maxRetries))
}
