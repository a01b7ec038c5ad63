// Package store defines the persistence contract the engine runs against:
// upsert-by-unique-key on the reference entities and jobs, point lookups by
// business fingerprint, and the atomic business upsert.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/map-harvest/harvest/pkg/models"
)

// ErrNoJob signals that no eligible job exists. The run loop treats it as a
// clean stop, not a failure.
var ErrNoJob = errors.New("no eligible job")

// Stats summarizes the harvested data set for the read API.
type Stats struct {
	Businesses    int64            `json:"businesses"`
	Categories    int64            `json:"categories"`
	Districts     int64            `json:"districts"`
	JobsByStatus  map[string]int64 `json:"jobs_by_status"`
	LastScrapedAt *time.Time       `json:"last_scraped_at,omitempty"`
}

// Store is the persistence adapter. Reference entities (city, district,
// category) are created lazily on first encounter and never mutated on
// conflict; jobs keep their status and lastRun across syncs.
type Store interface {
	UpsertCity(ctx context.Context, name, slug string) (int64, error)
	UpsertDistrict(ctx context.Context, cityID int64, name, slug string) (int64, error)
	UpsertCategory(ctx context.Context, name, slug string) (int64, error)

	// EnsureJob creates the (category, district) job if it does not exist.
	// An existing job is left untouched.
	EnsureJob(ctx context.Context, categoryID, districtID int64) error

	// NextJob returns the eligible job with the earliest lastRun, never-run
	// jobs first, ties broken by ascending id. Eligibility is limited to
	// pairs still present in the active plan. Returns ErrNoJob when empty.
	NextJob(ctx context.Context, categories, districts []string) (*models.Job, error)

	MarkJobRunning(ctx context.Context, id int64) error
	MarkJobCompleted(ctx context.Context, id int64, totalFound int) error
	MarkJobFailed(ctx context.Context, id int64) error
	ListJobs(ctx context.Context) ([]models.Job, error)

	// BusinessExists is the cheap early-diagnosis lookup by fingerprint.
	BusinessExists(ctx context.Context, fingerprint string) (bool, error)

	// UpsertBusiness resolves the owning city, district, and category rows,
	// then writes the business keyed by fingerprint, atomically from the
	// caller's perspective. The returned bool reports whether a prior row
	// existed (NEW vs UPDATE log classification only).
	UpsertBusiness(ctx context.Context, b *models.Business) (bool, error)

	ListBusinesses(ctx context.Context, limit, offset int) ([]models.Business, error)
	Stats(ctx context.Context) (*Stats, error)

	Close()
}
