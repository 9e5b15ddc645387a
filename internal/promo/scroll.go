package promo

import (
	"context"
	"fmt"
	"time"

	"promoscan/internal/common"
)

// ScrollResult reports how a full scroll ended.
type ScrollResult struct {
	Scrolls int
	Stable  bool // false when maxScrolls was reached with the page still growing
}

// FullScroll scrolls to the bottom of the document and waits pause, until the
// document height stops growing or maxScrolls scroll actions have been made.
func FullScroll(ctx context.Context, s Scroller, pause time.Duration, maxScrolls int) (ScrollResult, error) {
	var res ScrollResult

	last, err := s.ScrollHeight(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read page height: %w", err)
	}

	for res.Scrolls < maxScrolls {
		if err := s.ScrollToBottom(ctx); err != nil {
			return res, fmt.Errorf("failed to scroll: %w", err)
		}
		res.Scrolls++

		if err := common.Pause(ctx, pause); err != nil {
			return res, err
		}

		height, err := s.ScrollHeight(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to read page height: %w", err)
		}
		if height <= last {
			res.Stable = true
			return res, nil
		}
		last = height
	}

	return res, nil
}
