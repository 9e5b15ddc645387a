package runner

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"promoscan/internal/config"
	"promoscan/internal/formatter"
	"promoscan/internal/output"
	"promoscan/internal/promo"
	"promoscan/internal/publish"
	"promoscan/internal/scraper"
	"promoscan/internal/store"
)

// Recorder stores finished runs.
type Recorder interface {
	SaveRun(ctx context.Context, run store.Run, categories []promo.Category) (int64, error)
}

// Summary describes one completed pipeline run.
type Summary struct {
	RunID      int64     `json:"run_id,omitempty"`
	Site       string    `json:"site"`
	Output     string    `json:"output"`
	Format     string    `json:"format"`
	Categories int       `json:"categories"`
	Products   int       `json:"products"`
	Published  []string  `json:"published"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Runner executes the whole pipeline: scrape, write, publish, record.
type Runner struct {
	cfg        config.Config
	scraper    scraper.Scraper
	publishers []publish.Publisher
	history    Recorder
}

// New creates a Runner. history may be nil.
func New(cfg config.Config, s scraper.Scraper, publishers []publish.Publisher, history Recorder) *Runner {
	return &Runner{
		cfg:        cfg,
		scraper:    s,
		publishers: publishers,
		history:    history,
	}
}

// Run performs one pipeline run. The artifact is written before publishing,
// so a publish failure leaves it on disk.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		Site:      r.scraper.Name(),
		Output:    r.cfg.Output.Path,
		Format:    r.cfg.Output.Format,
		Published: []string{},
		StartedAt: time.Now(),
	}
	logger := log.WithField("site", summary.Site)

	content, err := r.scraper.Scrape(ctx, r.cfg)
	if err != nil {
		return summary, fmt.Errorf("failed to scrape: %w", err)
	}
	categories := content.Categories()
	summary.Categories, summary.Products = promo.Totals(categories)

	rendered, err := formatter.Format(content, r.cfg.Output.Format)
	if err != nil {
		return summary, fmt.Errorf("failed to format output: %w", err)
	}
	if err := output.Write(r.cfg.Output.Path, []byte(rendered)); err != nil {
		return summary, err
	}
	logger.WithFields(log.Fields{
		"path":   r.cfg.Output.Path,
		"format": r.cfg.Output.Format,
	}).Info("Output written")

	for _, p := range r.publishers {
		if err := p.Publish(ctx, r.cfg.Output.Path, categories); err != nil {
			return summary, fmt.Errorf("failed to publish to %s: %w", p.Name(), err)
		}
		summary.Published = append(summary.Published, p.Name())
	}

	summary.FinishedAt = time.Now()

	if r.history != nil {
		id, err := r.history.SaveRun(ctx, store.Run{
			Site:       summary.Site,
			StartedAt:  summary.StartedAt,
			FinishedAt: summary.FinishedAt,
			Output:     summary.Output,
		}, categories)
		if err != nil {
			logger.WithError(err).Warn("Failed to record run history")
		} else {
			summary.RunID = id
		}
	}

	logger.WithFields(log.Fields{
		"categories": summary.Categories,
		"products":   summary.Products,
		"duration":   summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	}).Info("Run completed")

	return summary, nil
}
