package crawler

import (
	"context"
	"fmt"
	"time"
)

// Map extracts a fresh PageMap from the current page state
func (b *Browser) Map(ctx context.Context) (*PageMap, error) {
	page := b.page.Context(ctx)

	// Don't hang on persistent connections
	page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}

	res, err := page.Eval(interactiveElementsScript)
	if err != nil {
		return nil, fmt.Errorf("extract elements: %w", err)
	}

	var targets []Target
	for _, v := range res.Value.Arr() {
		targets = append(targets, Target{
			Selector: v.Get("selector").String(),
			Type:     v.Get("type").String(),
			Text:     v.Get("text").String(),
		})
	}

	return &PageMap{
		URL:      info.URL,
		Title:    info.Title,
		Elements: targets,
	}, nil
}
