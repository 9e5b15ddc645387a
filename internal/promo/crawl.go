package promo

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"promoscan/internal/common"
	"promoscan/internal/config"
)

// Crawler walks every promotion category of one site through a Session.
type Crawler struct {
	cfg     config.Config
	session Session
	logger  *log.Entry
	pause   func(ctx context.Context, d time.Duration) error
}

// NewCrawler creates a Crawler. cfg is copied and never modified.
func NewCrawler(cfg config.Config, session Session) *Crawler {
	return &Crawler{
		cfg:     cfg,
		session: session,
		logger:  log.WithField("site", cfg.Site.Name),
		pause:   common.Pause,
	}
}

// Run opens the landing page, discovers the categories and crawls them in
// order. A category that fails is kept with no products and the crawl moves
// on; only landing-page failures and cancellation end the run with an error.
func (c *Crawler) Run(ctx context.Context) ([]Category, error) {
	timing := c.cfg.Timing

	c.logger.WithField("url", c.cfg.Site.LandingURL).Info("Opening landing page")
	if err := c.session.Navigate(ctx, c.cfg.Site.LandingURL); err != nil {
		return nil, fmt.Errorf("failed to open landing page: %w", err)
	}
	if err := c.pause(ctx, timing.LandingWait); err != nil {
		return nil, err
	}

	c.dismissConsent(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := 0; i < timing.InitialScrolls; i++ {
		if err := c.session.ScrollToBottom(ctx); err != nil {
			c.logger.WithError(err).Warn("Initial scroll failed")
			break
		}
		if err := c.pause(ctx, timing.ScrollPause); err != nil {
			return nil, err
		}
	}

	links, err := c.Discover(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("categories", len(links)).Info("Discovered categories")

	categories := make([]Category, 0, len(links))
	for i, link := range links {
		entry := c.logger.WithFields(log.Fields{
			"category": link.Name,
			"url":      link.URL,
			"index":    i + 1,
		})
		entry.Info("Crawling category")

		products, err := c.crawlCategory(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return categories, ctx.Err()
			}
			entry.WithError(err).Error("Category failed, keeping it without products")
			products = nil
		} else {
			entry.WithField("products", len(products)).Info("Category done")
		}
		categories = append(categories, NewCategory(link, products))

		if i < len(links)-1 {
			if err := c.pause(ctx, timing.CategoryDelay); err != nil {
				return categories, err
			}
		}
	}

	return categories, nil
}

// Discover lists the category links on the current page.
func (c *Crawler) Discover(ctx context.Context) ([]Link, error) {
	raw, err := c.session.Anchors(ctx, c.cfg.Site.CategoryMarker)
	if err != nil {
		return nil, fmt.Errorf("failed to collect category links: %w", err)
	}
	base := c.session.URL()
	if base == "" {
		base = c.cfg.Site.LandingURL
	}
	return DedupeCategories(raw, base, c.cfg.Site.CategoryMarker, c.cfg.Site.FallbackName), nil
}

func (c *Crawler) dismissConsent(ctx context.Context) {
	clicked, err := c.session.DismissConsent(ctx, c.cfg.Site.ConsentText, c.cfg.Timing.ConsentTimeout)
	switch {
	case err != nil:
		c.logger.WithError(err).Warn("Could not dismiss cookie banner")
	case clicked:
		c.logger.Info("Cookies accepted")
	default:
		c.logger.Info("No cookie banner")
	}
}

func (c *Crawler) crawlCategory(ctx context.Context, link Link) ([]Product, error) {
	timing := c.cfg.Timing

	if err := c.session.Navigate(ctx, link.URL); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := c.pause(ctx, timing.CategoryWait); err != nil {
		return nil, err
	}

	res, err := FullScroll(ctx, c.session, timing.ScrollPause, timing.MaxScrolls)
	if err != nil {
		return nil, err
	}
	if !res.Stable {
		c.logger.WithFields(log.Fields{
			"url":     link.URL,
			"scrolls": res.Scrolls,
		}).Warn("Page height still growing at scroll limit")
	}

	html, err := c.session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}

	pageURL := c.session.URL()
	if pageURL == "" {
		pageURL = link.URL
	}
	products, err := ExtractProductsHTML(html, pageURL, c.cfg.Site.Selectors, c.cfg.Site.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return products, nil
}
