package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"

	"promoscan/internal/output"
)

// Default returns the built-in configuration for the Eurospin promotions site.
func Default() Config {
	return Config{
		Site: SiteConfig{
			Name:           "eurospin",
			Label:          "Eurospin",
			LandingURL:     "https://www.eurospin.it/promozioni/",
			CategoryMarker: "category_filter=",
			FallbackName:   "Categoria",
			ConsentText:    "Accetta tutto",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Selectors: Selectors{
				Item:   "a.sn_promo_grid_item",
				Name:   ".i_title",
				Brand:  ".i_brand",
				Price:  ".i_price i[itemprop='price']",
				Image:  "img.i_image",
				Period: ".date_current_promo",
			},
		},
		Timing: TimingConfig{
			LandingWait:     3 * time.Second,
			ConsentTimeout:  10 * time.Second,
			NavigateTimeout: 60 * time.Second,
			ScrollPause:     1500 * time.Millisecond,
			CategoryWait:    2 * time.Second,
			CategoryDelay:   3 * time.Second,
			InitialScrolls:  4,
			MaxScrolls:      50,
		},
		Browser: BrowserConfig{
			Headless:  true,
			NoSandbox: true,
			Width:     1920,
			Height:    1080,
		},
		Output: OutputConfig{
			Path:   "promozioni_eurospin.json",
			Format: "json",
		},
		Firebase: FirebaseConfig{
			Path: "promozioni/eurospin",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
// Keys missing from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the crawl cannot work with.
func (c Config) Validate() error {
	u, err := url.Parse(c.Site.LandingURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site landing_url must be an absolute URL, got %q", c.Site.LandingURL)
	}
	if c.Site.CategoryMarker == "" {
		return fmt.Errorf("site category_marker is required")
	}
	if c.Site.Selectors.Item == "" || c.Site.Selectors.Name == "" {
		return fmt.Errorf("item and name selectors are required")
	}
	if err := c.Site.Selectors.validate(); err != nil {
		return err
	}

	t := c.Timing
	for name, d := range map[string]time.Duration{
		"landing_wait":     t.LandingWait,
		"consent_timeout":  t.ConsentTimeout,
		"navigate_timeout": t.NavigateTimeout,
		"scroll_pause":     t.ScrollPause,
		"category_wait":    t.CategoryWait,
		"category_delay":   t.CategoryDelay,
	} {
		if d < 0 {
			return fmt.Errorf("timing %s must be non-negative", name)
		}
	}
	if t.InitialScrolls < 0 {
		return fmt.Errorf("timing initial_scrolls must be non-negative")
	}
	if t.MaxScrolls <= 0 {
		return fmt.Errorf("timing max_scrolls must be positive")
	}

	if c.Output.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if !slices.Contains(output.Formats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s", c.Output.Format)
	}

	if c.Firebase.DatabaseURL != "" && c.Firebase.Path == "" {
		return fmt.Errorf("firebase path is required when database_url is set")
	}
	return nil
}

// validate compiles every non-empty selector. goquery treats an invalid
// selector as one that matches nothing, so errors must surface here.
func (s Selectors) validate() error {
	for name, sel := range map[string]string{
		"item":   s.Item,
		"name":   s.Name,
		"brand":  s.Brand,
		"price":  s.Price,
		"image":  s.Image,
		"period": s.Period,
	} {
		if sel == "" {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("invalid %s selector %q: %w", name, sel, err)
		}
	}
	return nil
}
