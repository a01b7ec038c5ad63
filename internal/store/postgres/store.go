// Package postgres implements the store contract on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/map-harvest/harvest/internal/engine/extract"
	"github.com/map-harvest/harvest/internal/store"
	"github.com/map-harvest/harvest/pkg/models"
)

func slugOf(s string) string { return extract.Slugify(s) }

// Store is a pgxpool-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects the pool and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Debug().Msg("Postgres store ready")
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) UpsertCity(ctx context.Context, name, slug string) (int64, error) {
	return s.upsertRef(ctx, `
		INSERT INTO cities (name, slug) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name, slug)
}

func (s *Store) UpsertCategory(ctx context.Context, name, slug string) (int64, error) {
	return s.upsertRef(ctx, `
		INSERT INTO categories (name, slug) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name, slug)
}

func (s *Store) upsertRef(ctx context.Context, sql, name, slug string) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, sql, name, slug).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) UpsertDistrict(ctx context.Context, cityID int64, name, slug string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO districts (city_id, name, slug) VALUES ($1, $2, $3)
		ON CONFLICT (city_id, slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, cityID, name, slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert district %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) EnsureJob(ctx context.Context, categoryID, districtID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_jobs (category_id, district_id, status)
		VALUES ($1, $2, 'PENDING')
		ON CONFLICT (category_id, district_id) DO NOTHING`, categoryID, districtID)
	if err != nil {
		return fmt.Errorf("failed to ensure job: %w", err)
	}
	return nil
}

func (s *Store) NextJob(ctx context.Context, categories, districts []string) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx, `
		SELECT j.id, j.category_id, j.district_id, c.name, d.name, j.status, j.last_run, j.total_found
		FROM scrape_jobs j
		JOIN categories c ON c.id = j.category_id
		JOIN districts d ON d.id = j.district_id
		WHERE c.name = ANY($1) AND d.name = ANY($2)
		ORDER BY j.last_run ASC NULLS FIRST, j.id ASC
		LIMIT 1`, categories, districts).
		Scan(&j.ID, &j.CategoryID, &j.DistrictID, &j.Category, &j.District, &j.Status, &j.LastRun, &j.TotalFound)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNoJob
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select next job: %w", err)
	}
	return &j, nil
}

func (s *Store) MarkJobRunning(ctx context.Context, id int64) error {
	return s.setJobStatus(ctx, id, models.JobRunning)
}

func (s *Store) MarkJobFailed(ctx context.Context, id int64) error {
	// last_run stays as it was: a failed job retries with its normal
	// queue priority, not immediately ahead of everything else.
	_, err := s.pool.Exec(ctx, `
		UPDATE scrape_jobs SET status = 'FAILED'
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to fail job %d: %w", id, err)
	}
	return nil
}

func (s *Store) setJobStatus(ctx context.Context, id int64, status models.JobStatus) error {
	if _, err := s.pool.Exec(ctx, `UPDATE scrape_jobs SET status = $2 WHERE id = $1`, id, string(status)); err != nil {
		return fmt.Errorf("failed to set job %d status: %w", id, err)
	}
	return nil
}

func (s *Store) MarkJobCompleted(ctx context.Context, id int64, totalFound int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scrape_jobs SET status = 'COMPLETED', last_run = now(), total_found = $2
		WHERE id = $1`, id, totalFound)
	if err != nil {
		return fmt.Errorf("failed to complete job %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT j.id, j.category_id, j.district_id, c.name, d.name, j.status, j.last_run, j.total_found
		FROM scrape_jobs j
		JOIN categories c ON c.id = j.category_id
		JOIN districts d ON d.id = j.district_id
		ORDER BY j.last_run ASC NULLS FIRST, j.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.CategoryID, &j.DistrictID, &j.Category, &j.District, &j.Status, &j.LastRun, &j.TotalFound); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) BusinessExists(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM businesses WHERE fingerprint = $1)`, fingerprint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return exists, nil
}

// UpsertBusiness writes the full record inside one transaction so a partially
// written business is never observable. The fingerprint key never changes on
// update; every scraped field is overwritten and scraped_at bumped.
func (s *Store) UpsertBusiness(ctx context.Context, b *models.Business) (bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var cityID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO cities (name, slug) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, b.City, slugOf(b.City)).Scan(&cityID); err != nil {
		return false, fmt.Errorf("failed to resolve city: %w", err)
	}

	var districtID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO districts (city_id, name, slug) VALUES ($1, $2, $3)
		ON CONFLICT (city_id, slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, cityID, b.District, slugOf(b.District)).Scan(&districtID); err != nil {
		return false, fmt.Errorf("failed to resolve district: %w", err)
	}

	var categoryID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO categories (name, slug) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, b.Category, slugOf(b.Category)).Scan(&categoryID); err != nil {
		return false, fmt.Errorf("failed to resolve category: %w", err)
	}

	var existing bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM businesses WHERE fingerprint = $1)`, b.Fingerprint).Scan(&existing); err != nil {
		return false, fmt.Errorf("failed to check existing business: %w", err)
	}

	hours, _ := json.Marshal(b.OperatingHours)
	gallery, _ := json.Marshal(b.GalleryImages)
	reviews, _ := json.Marshal(b.Reviews)
	menu, _ := json.Marshal(b.MenuItems)

	_, err = tx.Exec(ctx, `
		INSERT INTO businesses (
			fingerprint, name, rating, review_count, address, phone, website,
			price_info, price_reported_count, operating_hours, image_url,
			gallery_images, reviews, menu_items, detail_url, category_id,
			district_id, query, scraped_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (fingerprint) DO UPDATE SET
			name = EXCLUDED.name,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			price_info = EXCLUDED.price_info,
			price_reported_count = EXCLUDED.price_reported_count,
			operating_hours = EXCLUDED.operating_hours,
			image_url = EXCLUDED.image_url,
			gallery_images = EXCLUDED.gallery_images,
			reviews = EXCLUDED.reviews,
			menu_items = EXCLUDED.menu_items,
			detail_url = EXCLUDED.detail_url,
			category_id = EXCLUDED.category_id,
			district_id = EXCLUDED.district_id,
			query = EXCLUDED.query,
			scraped_at = EXCLUDED.scraped_at`,
		b.Fingerprint, b.Name, b.Rating, b.ReviewCount, b.Address, b.Phone, b.Website,
		b.PriceInfo, b.PriceReportedCount, hours, b.ImageURL,
		gallery, reviews, menu, b.DetailURL, categoryID,
		districtID, b.Query, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to upsert business: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit business upsert: %w", err)
	}
	return existing, nil
}

func (s *Store) ListBusinesses(ctx context.Context, limit, offset int) ([]models.Business, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `
		SELECT b.fingerprint, b.name, b.rating, b.review_count, b.address, b.phone,
			b.website, b.price_info, b.price_reported_count, b.operating_hours,
			b.image_url, b.gallery_images, b.reviews, b.menu_items, b.detail_url,
			ci.name, d.name, c.name, b.query, b.scraped_at
		FROM businesses b
		JOIN categories c ON c.id = b.category_id
		JOIN districts d ON d.id = b.district_id
		JOIN cities ci ON ci.id = d.city_id
		ORDER BY b.scraped_at DESC, b.id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var out []models.Business
	for rows.Next() {
		var b models.Business
		var hours, gallery, reviews, menu []byte
		if err := rows.Scan(&b.Fingerprint, &b.Name, &b.Rating, &b.ReviewCount, &b.Address, &b.Phone,
			&b.Website, &b.PriceInfo, &b.PriceReportedCount, &hours,
			&b.ImageURL, &gallery, &reviews, &menu, &b.DetailURL,
			&b.City, &b.District, &b.Category, &b.Query, &b.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		_ = json.Unmarshal(hours, &b.OperatingHours)
		_ = json.Unmarshal(gallery, &b.GalleryImages)
		_ = json.Unmarshal(reviews, &b.Reviews)
		_ = json.Unmarshal(menu, &b.MenuItems)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*store.Stats, error) {
	st := &store.Stats{JobsByStatus: make(map[string]int64)}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM businesses),
			(SELECT count(*) FROM categories),
			(SELECT count(*) FROM districts),
			(SELECT max(scraped_at) FROM businesses)`).
		Scan(&st.Businesses, &st.Categories, &st.Districts, &st.LastScrapedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM scrape_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to read job stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job stats: %w", err)
		}
		st.JobsByStatus[status] = n
	}
	return st, rows.Err()
}
