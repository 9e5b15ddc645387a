package config

import "time"

// Config is the complete, read-only configuration of one promoscan run.
// It is built once (defaults, then file, then flags) and passed by value.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Timing   TimingConfig   `yaml:"timing"`
	Browser  BrowserConfig  `yaml:"browser"`
	Output   OutputConfig   `yaml:"output"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Storage  StorageConfig  `yaml:"storage"`
	History  HistoryConfig  `yaml:"history"`
	Server   ServerConfig   `yaml:"server"`
}

// SiteConfig describes the retail site being crawled.
type SiteConfig struct {
	Name           string    `yaml:"name"`  // registry key
	Label          string    `yaml:"label"` // written into every product
	LandingURL     string    `yaml:"landing_url"`
	CategoryMarker string    `yaml:"category_marker"`
	FallbackName   string    `yaml:"fallback_name"`
	ConsentText    string    `yaml:"consent_text"`
	UserAgent      string    `yaml:"user_agent"`
	Selectors      Selectors `yaml:"selectors"`
}

// Selectors are the CSS selectors used to read a product card.
// Item matches the card anchor; the others are looked up inside it.
type Selectors struct {
	Item   string `yaml:"item"`
	Name   string `yaml:"name"`
	Brand  string `yaml:"brand"`
	Price  string `yaml:"price"`
	Image  string `yaml:"image"`
	Period string `yaml:"period"`
}

// TimingConfig holds every fixed pause of the crawl.
type TimingConfig struct {
	LandingWait     time.Duration `yaml:"landing_wait"`
	ConsentTimeout  time.Duration `yaml:"consent_timeout"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	ScrollPause     time.Duration `yaml:"scroll_pause"`
	CategoryWait    time.Duration `yaml:"category_wait"`
	CategoryDelay   time.Duration `yaml:"category_delay"`
	InitialScrolls  int           `yaml:"initial_scrolls"`
	MaxScrolls      int           `yaml:"max_scrolls"`
}

type BrowserConfig struct {
	Headless  bool   `yaml:"headless"`
	NoSandbox bool   `yaml:"no_sandbox"`
	ProxyURL  string `yaml:"proxy_url"`
	Bin       string `yaml:"bin"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // json, csv, markdown, text, html
}

// FirebaseConfig enables publishing to a Realtime Database when DatabaseURL is set.
type FirebaseConfig struct {
	DatabaseURL     string `yaml:"database_url"`
	Path            string `yaml:"path"`
	CredentialsFile string `yaml:"credentials_file"`
}

// StorageConfig enables uploading the artifact to a bucket when Bucket is set.
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Object          string `yaml:"object"`
	CredentialsFile string `yaml:"credentials_file"`
}

// HistoryConfig enables the SQLite run history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}
