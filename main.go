package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"promoscan/internal/config"
	"promoscan/internal/output"
	"promoscan/internal/publish"
	"promoscan/internal/runner"
	"promoscan/internal/scraper"
	_ "promoscan/internal/sites/eurospin"
	"promoscan/internal/store"
)

var version = "dev"

var (
	configPath   string
	site         string
	outputFile   string
	outputFormat string
	showUI       bool
	proxyURL     string
	maxScrolls   int
	logLevel     string
	historyPath  string
	firebaseURL  string
	firebasePath string
	bucket       string
	credentials  string
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "promoscan",
		Short:   "Scrape supermarket promotions with a headless browser",
		Version: version,
		Long: `promoscan opens a retailer's promotions page in a headless browser, walks
every promotion category, scrolls each one until all products are loaded and
writes the collected products to a single file. The result can optionally be
published to Firebase and recorded in a local history database.`,
		Example: `  # Scrape Eurospin into promozioni_eurospin.json
  promoscan

  # Export as CSV with a visible browser
  promoscan -o promo.csv --showui

  # Scrape and publish to the Realtime Database
  promoscan --firebase-url https://example.firebaseio.com --credentials sa.json

  # Start the trigger server
  promoscan serve --addr :8080 --api-key secret`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: setupLogging,
		RunE:              run,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", os.Getenv("PROMOSCAN_CONFIG"), "YAML config file (defaults to PROMOSCAN_CONFIG env var)")
	flags.StringVar(&site, "site", "eurospin", "Site to scrape ("+strings.Join(scraper.Names(), ", ")+")")
	flags.StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	flags.StringVarP(&outputFormat, "format", "f", "", "Output format ("+strings.Join(output.Formats, ", ")+")")
	flags.BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	flags.StringVarP(&proxyURL, "proxy", "p", os.Getenv("PROMOSCAN_PROXY"), "Proxy URL (e.g. http://127.0.0.1:7890), defaults to PROMOSCAN_PROXY env var")
	flags.IntVar(&maxScrolls, "max-scrolls", 0, "Maximum scroll iterations per category page")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&historyPath, "history", "", "SQLite file recording every run")
	flags.StringVar(&firebaseURL, "firebase-url", os.Getenv("FIREBASE_DATABASE_URL"), "Firebase Realtime Database URL, defaults to FIREBASE_DATABASE_URL env var")
	flags.StringVar(&firebasePath, "firebase-path", "", "Realtime Database path for the promotions")
	flags.StringVar(&bucket, "bucket", os.Getenv("PROMOSCAN_BUCKET"), "Cloud Storage bucket for the output file, defaults to PROMOSCAN_BUCKET env var")
	flags.StringVar(&credentials, "credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "Service account credentials file, defaults to GOOGLE_APPLICATION_CREDENTIALS env var")

	rootCmd.AddCommand(newServeCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.WithError(err).Error("promoscan failed")
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	summary, err := p.runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Output written to: %s (%d categories, %d products)\n",
		summary.Output, summary.Categories, summary.Products)
	return nil
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("site") {
		cfg.Site.Name = site
	}
	if outputFile != "" {
		cfg.Output.Path = outputFile
		// If output file is specified but format is not, infer format from file extension
		if outputFormat == "" {
			if inferred := output.InferFormat(outputFile); inferred != "" {
				cfg.Output.Format = inferred
			}
		}
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if showUI {
		cfg.Browser.Headless = false
	}
	if proxyURL != "" {
		cfg.Browser.ProxyURL = proxyURL
	}
	if flags.Changed("max-scrolls") {
		cfg.Timing.MaxScrolls = maxScrolls
	}
	if historyPath != "" {
		cfg.History.Path = historyPath
	}
	if firebaseURL != "" {
		cfg.Firebase.DatabaseURL = firebaseURL
	}
	if firebasePath != "" {
		cfg.Firebase.Path = firebasePath
	}
	if bucket != "" {
		cfg.Storage.Bucket = bucket
	}
	if credentials != "" {
		if cfg.Firebase.CredentialsFile == "" {
			cfg.Firebase.CredentialsFile = credentials
		}
		if cfg.Storage.CredentialsFile == "" {
			cfg.Storage.CredentialsFile = credentials
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type pipeline struct {
	runner  *runner.Runner
	history *store.Store
	closers []func()
}

func buildPipeline(ctx context.Context, cfg config.Config) (*pipeline, error) {
	s, ok := scraper.Get(cfg.Site.Name)
	if !ok {
		return nil, fmt.Errorf("unknown site: %s", cfg.Site.Name)
	}

	p := &pipeline{}

	publishers, closePublishers, err := publish.FromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, closePublishers)

	var recorder runner.Recorder
	if cfg.History.Path != "" {
		st, err := store.Open(cfg.History.Path)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.history = st
		recorder = st
		p.closers = append(p.closers, func() {
			if err := st.Close(); err != nil {
				log.WithError(err).Warn("Failed to close history database")
			}
		})
	}

	p.runner = runner.New(cfg, s, publishers, recorder)
	return p, nil
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}
