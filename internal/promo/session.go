package promo

import (
	"context"
	"time"
)

// Scroller is the part of a page needed to exhaust lazy loading.
type Scroller interface {
	ScrollHeight(ctx context.Context) (int, error)
	ScrollToBottom(ctx context.Context) error
}

// Session is a live browser tab driven by the crawl. Implementations are
// not safe for concurrent use; the crawl only ever calls one method at a time.
type Session interface {
	Scroller

	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// DismissConsent waits up to timeout for the cookie banner button whose
	// text contains label and clicks it. It reports false when no banner showed up.
	DismissConsent(ctx context.Context, label string, timeout time.Duration) (bool, error)

	// Anchors returns every anchor whose resolved href contains marker, in DOM order.
	Anchors(ctx context.Context, marker string) ([]RawLink, error)

	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)

	// URL returns the address of the current document.
	URL() string
}
