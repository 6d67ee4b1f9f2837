package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/v0xg/macroweb/internal/diag"
	"github.com/v0xg/macroweb/internal/executor"
	"github.com/v0xg/macroweb/internal/frames"
	"github.com/v0xg/macroweb/internal/macro"
	"github.com/v0xg/macroweb/internal/waiter"
)

// launchTestBrowser serves a page with one same-origin and one cross-origin
// iframe, each holding an .item element, and opens it headless.
func launchTestBrowser(t *testing.T) *Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}
	if _, found := launcher.LookPath(); !found {
		t.Skip("no Chrome/Chromium available")
	}

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="item" id="foreign">foreign</div></body></html>`)
	}))
	t.Cleanup(other.Close)

	mux := http.NewServeMux()
	mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><button class="item" id="inner" onclick="window.clicks=(window.clicks||0)+1">inner</button></body></html>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<button class="item" id="btn" onclick="window.clicks=(window.clicks||0)+1">top</button>
<section id="doc"><h1>Report</h1></section>
<iframe src="%s/"></iframe>
<iframe src="/child"></iframe>
</body></html>`, other.URL)
	})
	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)

	b, err := Launch(context.Background(), Options{
		URL:      site.URL,
		Width:    1024,
		Height:   768,
		Headless: true,
		PrintDir: t.TempDir(),
		Timeout:  10 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(b.Close)

	// Let the iframes load
	require.Eventually(t, func() bool {
		els, err := frames.FindAll(context.Background(), "#inner", b.Root())
		return err == nil && len(els) == 1
	}, 10*time.Second, 100*time.Millisecond)
	return b
}

func TestBrowser_FindAllSkipsCrossOriginFrames(t *testing.T) {
	b := launchTestBrowser(t)

	els, err := frames.FindAll(context.Background(), ".item", b.Root())
	require.NoError(t, err)
	require.Len(t, els, 2)

	first, err := els[0].OuterHTML(context.Background())
	require.NoError(t, err)
	assert.Contains(t, first, `id="btn"`)

	second, err := els[1].OuterHTML(context.Background())
	require.NoError(t, err)
	assert.Contains(t, second, `id="inner"`)
}

func TestBrowser_InvalidSelector(t *testing.T) {
	b := launchTestBrowser(t)

	_, err := frames.FindFirst(context.Background(), "##", b.Root())
	assert.Error(t, err)
}

func TestBrowser_RunMacro(t *testing.T) {
	b := launchTestBrowser(t)

	log := diag.NewLog(nil, zap.NewNop())
	status := &diag.Recorder{}
	runner := executor.NewRunner(b, log, status, executor.Options{
		Wait: waiter.Options{Timeout: 500 * time.Millisecond},
	}, zap.NewNop())

	summary := runner.Run(context.Background(), macro.Macro{
		{Action: macro.ActionClick, Selector: "#btn", Delay: 0},
		{Action: macro.ActionScroll, Selector: "#doc", Delay: 0},
		{Action: macro.ActionClick, Selector: "#missing", Delay: 0},
		{Action: macro.ActionPrint, Selector: "#doc", Delay: 0},
	})

	assert.Equal(t, 3, summary.Succeeded())
	assert.Equal(t, 1, summary.NotFound())
	assert.Contains(t, log.Lines(), "Clicked 1 element(s): '#btn'")
	assert.Contains(t, log.Lines(), "Print triggered for: '#doc'")

	clicks, err := b.Page().Eval(`() => window.clicks || 0`)
	require.NoError(t, err)
	assert.Equal(t, 1, clicks.Value.Int())
}
