package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"promoscan/internal/promo"
)

// ErrRunNotFound is returned when a run ID is not in the history.
var ErrRunNotFound = errors.New("run not found")

// Run is one finished crawl as recorded in the history.
type Run struct {
	ID         int64     `json:"id"`
	Site       string    `json:"site"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Categories int       `json:"categories"`
	Products   int       `json:"products"`
	Output     string    `json:"output"`
}

// Store keeps the crawl history in a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	version, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.WithFields(log.Fields{
		"path":    path,
		"version": version,
	}).Debug("History database ready")

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records run and its categories in one transaction and returns the
// new run ID. The Categories and Products counts are computed from categories.
func (s *Store) SaveRun(ctx context.Context, run Run, categories []promo.Category) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	nc, np := promo.Totals(categories)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (site, started_at, finished_at, categories, products, output)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Site, formatTime(run.StartedAt), formatTime(run.FinishedAt), nc, np, run.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for i, cat := range categories {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO run_categories (run_id, position, name, url)
			VALUES (?, ?, ?, ?)
		`, runID, i, cat.Name, cat.URL)
		if err != nil {
			return 0, fmt.Errorf("failed to insert category %q: %w", cat.Name, err)
		}
		categoryID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read category id: %w", err)
		}

		for j, p := range cat.Products {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_products (category_id, position, name, brand, price, image, period, link, site)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, categoryID, j, p.Name, p.Brand, p.Price, p.Image, p.Period, p.Link, p.Site); err != nil {
				return 0, fmt.Errorf("failed to insert product %q: %w", p.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site, started_at, finished_at, categories, products, output
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Site, &started, &finished, &r.Categories, &r.Products, &r.Output); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Categories rebuilds the category array of a recorded run in its original
// order. It returns ErrRunNotFound for an unknown run.
func (s *Store) Categories(ctx context.Context, runID int64) ([]promo.Category, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run %d: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.url,
		       p.name, p.brand, p.price, p.image, p.period, p.link, p.site
		FROM run_categories c
		LEFT JOIN run_products p ON p.category_id = c.id
		WHERE c.run_id = ?
		ORDER BY c.position, p.position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []promo.Category{}
	lastID := int64(-1)
	for rows.Next() {
		var (
			categoryID int64
			name, url  string
			pName      sql.NullString
			pBrand     sql.NullString
			pPrice     sql.NullString
			pImage     sql.NullString
			pPeriod    sql.NullString
			pLink      sql.NullString
			pSite      sql.NullString
		)
		if err := rows.Scan(&categoryID, &name, &url, &pName, &pBrand, &pPrice, &pImage, &pPeriod, &pLink, &pSite); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if categoryID != lastID {
			categories = append(categories, promo.NewCategory(promo.Link{Name: name, URL: url}, nil))
			lastID = categoryID
		}
		if !pName.Valid {
			continue
		}
		last := &categories[len(categories)-1]
		last.Products = append(last.Products, promo.Product{
			Name:   pName.String,
			Brand:  pBrand.String,
			Price:  pPrice.String,
			Image:  pImage.String,
			Period: pPeriod.String,
			Link:   pLink.String,
			Site:   pSite.String,
		})
	}
	return categories, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}
