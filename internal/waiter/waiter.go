// Package waiter polls the frame tree until a selector matches or a timeout
// elapses.
package waiter

import (
	"context"
	"time"

	"github.com/v0xg/macroweb/internal/frames"
)

const (
	DefaultTimeout  = 3000 * time.Millisecond
	DefaultInterval = 100 * time.Millisecond
)

// Options configures a wait
type Options struct {
	Timeout  time.Duration // Zero means DefaultTimeout
	Interval time.Duration // Zero means DefaultInterval
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// ForElement waits for the first element matching selector anywhere under
// root. A nil element with a nil error means the timeout elapsed.
func ForElement(ctx context.Context, selector string, root frames.Document, opts Options) (frames.Element, error) {
	return poll(ctx, opts, func() (frames.Element, bool, error) {
		el, err := frames.FindFirst(ctx, selector, root)
		return el, el != nil, err
	})
}

// ForElements waits until at least one element matches selector anywhere
// under root and returns all of them. An empty result with a nil error means
// the timeout elapsed.
func ForElements(ctx context.Context, selector string, root frames.Document, opts Options) ([]frames.Element, error) {
	return poll(ctx, opts, func() ([]frames.Element, bool, error) {
		els, err := frames.FindAll(ctx, selector, root)
		return els, len(els) > 0, err
	})
}

// poll runs check immediately and then on every interval tick, counted from
// its own start. The deadline is compared against the wall clock at each tick,
// so a slow check never stretches the timeout.
func poll[T any](ctx context.Context, opts Options, check func() (T, bool, error)) (T, error) {
	var zero T
	opts = opts.withDefaults()

	start := time.Now()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		v, ok, err := check()
		if err != nil {
			return zero, err
		}
		if ok {
			return v, nil
		}
		if time.Since(start) > opts.Timeout {
			return zero, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
