package scraper

import (
	"context"

	"promoscan/internal/config"
	"promoscan/internal/promo"
)

type Scraper interface {
	Name() string
	Scrape(ctx context.Context, cfg config.Config) (Content, error)
}

// Content is a finished crawl that can be rendered in every output format.
type Content interface {
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
	ToCSV() (string, error)
	Categories() []promo.Category
}
