package waiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/macroweb/internal/frames/framestest"
)

func fast(timeout time.Duration) Options {
	return Options{Timeout: timeout, Interval: 10 * time.Millisecond}
}

func TestForElement_ImmediateMatch(t *testing.T) {
	btn := framestest.NewElement("btn", "#btn")
	root := framestest.NewDocument(btn)

	start := time.Now()
	el, err := ForElement(context.Background(), "#btn", root, fast(time.Second))
	require.NoError(t, err)
	assert.Same(t, btn, el)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, root.Queries())
}

func TestForElements_AppearsLater(t *testing.T) {
	root := framestest.NewDocument()
	child := framestest.NewDocument()
	root.AddFrame(child)

	go func() {
		time.Sleep(50 * time.Millisecond)
		child.Add(framestest.NewElement("late", ".late"))
	}()

	els, err := ForElements(context.Background(), ".late", root, fast(2*time.Second))
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Greater(t, root.Queries(), 1, "the tree must be re-queried on every tick")
}

func TestForElement_TimeoutNeverEarly(t *testing.T) {
	root := framestest.NewDocument()
	timeout := 120 * time.Millisecond

	start := time.Now()
	el, err := ForElement(context.Background(), "#missing", root, fast(timeout))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Nil(t, el)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
}

func TestForElements_TimeoutReturnsEmpty(t *testing.T) {
	root := framestest.NewDocument()
	timeout := 80 * time.Millisecond

	start := time.Now()
	els, err := ForElements(context.Background(), "#missing", root, fast(timeout))
	require.NoError(t, err)
	assert.Empty(t, els)
	assert.GreaterOrEqual(t, time.Since(start), timeout)
}

func TestForElement_LookupErrorPropagates(t *testing.T) {
	badSelector := errors.New("not a valid selector")
	root := framestest.NewDocument()
	root.QueryErr = badSelector

	_, err := ForElement(context.Background(), "##", root, fast(time.Second))
	assert.ErrorIs(t, err, badSelector)

	_, err = ForElements(context.Background(), "##", root, fast(time.Second))
	assert.ErrorIs(t, err, badSelector)
}

func TestForElements_ContextCancelled(t *testing.T) {
	root := framestest.NewDocument()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := ForElements(ctx, "#missing", root, fast(5*time.Second))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 3000*time.Millisecond, o.Timeout)
	assert.Equal(t, 100*time.Millisecond, o.Interval)
}
