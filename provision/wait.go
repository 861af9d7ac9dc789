package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// WaitConfig bounds a device state poll. The old scripts polled every ten
// seconds forever; the timeout turns a stuck host into a reportable failure.
type WaitConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultWait matches the observed 10s interval with a 45 minute cap, enough
// for a firmware flash or an OS install pass.
func DefaultWait() WaitConfig {
	return WaitConfig{
		Interval: 10 * time.Second,
		Timeout:  45 * time.Minute,
	}
}

// TimeoutError reports a wait that exhausted its budget without the polled
// condition becoming true.
type TimeoutError struct {
	What     string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s (%s, %d attempts)",
		e.What, e.Elapsed.Round(time.Second), e.Attempts)
}

var errNotReady = errors.New("condition not met")

// WaitFor polls probe at a fixed interval until it reports true, the probe
// fails, or the configured timeout elapses. A probe error aborts the wait
// immediately; running out of time yields a *TimeoutError.
func WaitFor(ctx context.Context, what string, cfg WaitConfig, probe func(context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	attempts := 0
	start := time.Now()

	b := backoff.WithContext(backoff.NewConstantBackOff(cfg.Interval), waitCtx)
	err := backoff.Retry(func() error {
		attempts++
		waitAttempts.WithLabelValues(what).Inc()
		ok, err := probe(waitCtx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotReady
		}
		return nil
	}, b)

	if err == nil {
		return nil
	}
	if errors.Is(err, errNotReady) || errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{What: what, Attempts: attempts, Elapsed: time.Since(start)}
	}
	return errors.Wrapf(err, "waiting for %s", what)
}
