package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog_LazyActivation(t *testing.T) {
	var out bytes.Buffer
	l := NewLog(&out, zap.NewNop())

	assert.False(t, l.Visible())
	assert.Empty(t, out.String())

	l.Logf("Clicked %d element(s): '%s'", 2, "#btn")
	l.Logf("second")

	assert.True(t, l.Visible())
	assert.Equal(t, []string{"Clicked 2 element(s): '#btn'", "second"}, l.Lines())
	assert.Equal(t, "Diagnostics:\n  Clicked 2 element(s): '#btn'\n  second\n", out.String())
}

func TestLog_SingleLineEntries(t *testing.T) {
	l := NewLog(nil, nil)
	l.Logf("DOM snapshot: %s", "<div>\n  <p>x</p>\r\n</div>")

	lines := l.Lines()
	assert.Len(t, lines, 1)
	assert.Equal(t, "DOM snapshot: <div>   <p>x</p> </div>", lines[0])
	assert.Equal(t, lines[0]+"\n", l.String())
}

func TestLog_LinesIsACopy(t *testing.T) {
	l := NewLog(nil, nil)
	l.Logf("a")
	lines := l.Lines()
	lines[0] = "mutated"
	assert.Equal(t, []string{"a"}, l.Lines())
}

func TestConsole_NonTerminal(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out)
	c.Set("Running macro...", false)
	c.Set("Invalid macro JSON", true)
	c.Flush()
	assert.Equal(t, "→ Running macro...\n✗ Invalid macro JSON\n", out.String())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	msg, isErr := r.Last()
	assert.Empty(t, msg)
	assert.False(t, isErr)

	r.Set("Print error: Popup blocked", true)
	r.Set("Macro complete!", false)
	msg, isErr = r.Last()
	assert.Equal(t, "Macro complete!", msg)
	assert.False(t, isErr)
}

func TestLog_MirrorsRunID(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	l := NewLog(nil, zap.New(core))

	l.Logf("before")
	l.SetRunID("run-1")
	l.Logf("after")

	entries := recorded.All()
	assert.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "run_id")
	assert.Equal(t, "run-1", entries[1].ContextMap()["run_id"])
	assert.Equal(t, "after", entries[1].ContextMap()["entry"])
}
