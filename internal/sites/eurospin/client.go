package eurospin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"promoscan/internal/browser"
	"promoscan/internal/promo"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
)

// Client drives one browser tab and implements promo.Session.
type Client struct {
	browser         *browser.Browser
	page            *rod.Page
	navigateTimeout time.Duration
}

var _ promo.Session = (*Client)(nil)

// NewClient creates a new Client instance.
func NewClient(b *browser.Browser, navigateTimeout time.Duration) *Client {
	return &Client{browser: b, navigateTimeout: navigateTimeout}
}

// Close closes the page.
func (c *Client) Close() {
	if c.page != nil {
		c.page.Close()
	}
}

// Init opens the tab used for the whole crawl.
func (c *Client) Init(userAgent string) error {
	page, err := c.browser.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	c.page = page

	if userAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
	}
	_, _ = page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`)
	return nil
}

func (c *Client) Navigate(ctx context.Context, url string) error {
	p := c.page.Context(ctx)
	if c.navigateTimeout > 0 {
		p = p.Timeout(c.navigateTimeout)
	}
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// DismissConsent clicks the consent button. Finding and clicking it share one
// timeout; running out of time means there is no usable banner.
func (c *Client) DismissConsent(ctx context.Context, label string, timeout time.Duration) (bool, error) {
	p := c.page.Context(ctx).Timeout(timeout)

	btn, err := p.ElementR("button", regexp.QuoteMeta(label))
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// Waiting timed out: no banner on this page
		return false, nil
	}

	// btn inherits the timed context, so a covered button cannot block the crawl
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.WithField("label", label).Warn("Consent button found but not clickable before timeout")
			return false, nil
		}
		return false, fmt.Errorf("failed to click consent button: %w", err)
	}
	return true, nil
}

func (c *Client) ScrollHeight(ctx context.Context) (int, error) {
	res, err := c.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (c *Client) ScrollToBottom(ctx context.Context) error {
	_, err := c.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// Anchors collects anchors in a single evaluation; a.href is already resolved
// by the browser.
func (c *Client) Anchors(ctx context.Context, marker string) ([]promo.RawLink, error) {
	res, err := c.page.Context(ctx).Timeout(10*time.Second).Eval(`(marker) => {
		const links = [];
		document.querySelectorAll('a').forEach(a => {
			const href = a.href || a.getAttribute('href');
			if (href && href.includes(marker)) {
				links.push({text: (a.innerText || '').trim(), href: href});
			}
		});
		return links;
	}`, marker)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate link script: %w", err)
	}

	var links []promo.RawLink
	if err := res.Value.Unmarshal(&links); err != nil {
		return nil, fmt.Errorf("failed to parse links: %w", err)
	}
	return links, nil
}

func (c *Client) HTML(ctx context.Context) (string, error) {
	return c.page.Context(ctx).HTML()
}

func (c *Client) URL() string {
	info, err := c.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}
