package engine

import (
	"context"
	"fmt"

	"github.com/map-harvest/harvest/internal/engine/extract"
	"github.com/map-harvest/harvest/internal/store"
	"github.com/map-harvest/harvest/pkg/models"
)

// Plan is the crawl surface for a run: one city, the districts within
// it, and the categories to search in each district.
type Plan struct {
	City       string
	Districts  []string
	Categories []string
}

func (p Plan) validate() error {
	if p.City == "" {
		return fmt.Errorf("plan: city is required")
	}
	if len(p.Districts) == 0 {
		return fmt.Errorf("plan: at least one district is required")
	}
	if len(p.Categories) == 0 {
		return fmt.Errorf("plan: at least one category is required")
	}
	return nil
}

// Scheduler materializes a plan into persistent jobs and hands out the
// next eligible one. Job state lives entirely in the store, so a run
// resumes where the previous one left off.
type Scheduler struct {
	store store.Store
	plan  Plan
}

func NewScheduler(st store.Store, plan Plan) *Scheduler {
	return &Scheduler{store: st, plan: plan}
}

// SyncJobs upserts the city, every district and category in the plan,
// and ensures one job per (category, district) pair. Existing jobs keep
// their status and lastRun.
func (s *Scheduler) SyncJobs(ctx context.Context) error {
	if err := s.plan.validate(); err != nil {
		return err
	}

	cityID, err := s.store.UpsertCity(ctx, s.plan.City, extract.Slugify(s.plan.City))
	if err != nil {
		return fmt.Errorf("sync city: %w", err)
	}

	districtIDs := make([]int64, 0, len(s.plan.Districts))
	for _, d := range s.plan.Districts {
		id, err := s.store.UpsertDistrict(ctx, cityID, d, extract.Slugify(d))
		if err != nil {
			return fmt.Errorf("sync district %q: %w", d, err)
		}
		districtIDs = append(districtIDs, id)
	}

	for _, c := range s.plan.Categories {
		catID, err := s.store.UpsertCategory(ctx, c, extract.Slugify(c))
		if err != nil {
			return fmt.Errorf("sync category %q: %w", c, err)
		}
		for i, distID := range districtIDs {
			if err := s.store.EnsureJob(ctx, catID, distID); err != nil {
				return fmt.Errorf("sync job %q/%q: %w", c, s.plan.Districts[i], err)
			}
		}
	}
	return nil
}

// NextJob returns the least-recently-run job within the plan, with
// never-run jobs first. Returns store.ErrNoJob when nothing is eligible.
func (s *Scheduler) NextJob(ctx context.Context) (*models.Job, error) {
	return s.store.NextJob(ctx, s.plan.Categories, s.plan.Districts)
}
