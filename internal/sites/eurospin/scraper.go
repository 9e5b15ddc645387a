package eurospin

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"promoscan/internal/browser"
	"promoscan/internal/config"
	"promoscan/internal/promo"
	"promoscan/internal/scraper"
)

func init() {
	scraper.Register(&EurospinScraper{})
}

// EurospinScraper crawls the Eurospin promotions catalogue.
type EurospinScraper struct{}

func (s *EurospinScraper) Name() string { return "eurospin" }

// Scrape owns the browser for the whole crawl and always releases it.
func (s *EurospinScraper) Scrape(ctx context.Context, cfg config.Config) (scraper.Content, error) {
	b, err := browser.New(browser.Config{
		ProxyURL:  cfg.Browser.ProxyURL,
		Headless:  cfg.Browser.Headless,
		NoSandbox: cfg.Browser.NoSandbox,
		Bin:       cfg.Browser.Bin,
		Width:     cfg.Browser.Width,
		Height:    cfg.Browser.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
	}()

	client := NewClient(b, cfg.Timing.NavigateTimeout)
	defer client.Close()

	if err := client.Init(cfg.Site.UserAgent); err != nil {
		return nil, fmt.Errorf("failed to init eurospin client: %w", err)
	}

	categories, err := promo.NewCrawler(cfg, client).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to crawl promotions: %w", err)
	}

	return NewCatalogContent(cfg.Site.Label, cfg.Site.LandingURL, categories), nil
}
