// Package memory implements the store contract in process memory. It backs
// tests and --store=memory development runs where no database is available.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/map-harvest/harvest/internal/store"
	"github.com/map-harvest/harvest/pkg/models"
)

type refRow struct {
	id   int64
	name string
	slug string
}

type jobRow struct {
	models.Job
}

// Store is a mutex-guarded in-memory store.Store.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	cities     map[string]*refRow // name -> row
	districts  map[string]*refRow // cityID/slug -> row
	categories map[string]*refRow
	jobs       map[[2]int64]*jobRow // (categoryID, districtID)
	businesses map[string]*models.Business
}

func New() *Store {
	return &Store{
		cities:     make(map[string]*refRow),
		districts:  make(map[string]*refRow),
		categories: make(map[string]*refRow),
		jobs:       make(map[[2]int64]*jobRow),
		businesses: make(map[string]*models.Business),
	}
}

func (s *Store) Close() {}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) UpsertCity(_ context.Context, name, slug string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.cities[name]; ok {
		return row.id, nil
	}
	row := &refRow{id: s.id(), name: name, slug: slug}
	s.cities[name] = row
	return row.id, nil
}

func (s *Store) UpsertDistrict(_ context.Context, cityID int64, name, slug string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := districtKey(cityID, slug)
	if row, ok := s.districts[key]; ok {
		return row.id, nil
	}
	row := &refRow{id: s.id(), name: name, slug: slug}
	s.districts[key] = row
	return row.id, nil
}

func districtKey(cityID int64, slug string) string {
	return fmt.Sprintf("%d/%s", cityID, slug)
}

func (s *Store) UpsertCategory(_ context.Context, name, slug string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.categories[name]; ok {
		return row.id, nil
	}
	row := &refRow{id: s.id(), name: name, slug: slug}
	s.categories[name] = row
	return row.id, nil
}

func (s *Store) EnsureJob(_ context.Context, categoryID, districtID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{categoryID, districtID}
	if _, ok := s.jobs[key]; ok {
		return nil
	}
	s.jobs[key] = &jobRow{Job: models.Job{
		ID:         s.id(),
		CategoryID: categoryID,
		DistrictID: districtID,
		Category:   s.refName(s.categories, categoryID),
		District:   s.refNameDistrict(districtID),
		Status:     models.JobPending,
	}}
	return nil
}

func (s *Store) refName(m map[string]*refRow, id int64) string {
	for _, row := range m {
		if row.id == id {
			return row.name
		}
	}
	return ""
}

func (s *Store) refNameDistrict(id int64) string {
	for _, row := range s.districts {
		if row.id == id {
			return row.name
		}
	}
	return ""
}

func (s *Store) NextJob(_ context.Context, categories, districts []string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inCat := toSet(categories)
	inDist := toSet(districts)

	var eligible []*jobRow
	for _, j := range s.jobs {
		if inCat[j.Category] && inDist[j.District] {
			eligible = append(eligible, j)
		}
	}
	if len(eligible) == 0 {
		return nil, store.ErrNoJob
	}

	sort.Slice(eligible, func(a, b int) bool {
		ja, jb := eligible[a], eligible[b]
		switch {
		case ja.LastRun == nil && jb.LastRun != nil:
			return true
		case ja.LastRun != nil && jb.LastRun == nil:
			return false
		case ja.LastRun != nil && jb.LastRun != nil && !ja.LastRun.Equal(*jb.LastRun):
			return ja.LastRun.Before(*jb.LastRun)
		default:
			return ja.ID < jb.ID
		}
	})

	j := eligible[0].Job
	return &j, nil
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func (s *Store) findJob(id int64) *jobRow {
	for _, j := range s.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (s *Store) MarkJobRunning(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.findJob(id); j != nil {
		j.Status = models.JobRunning
	}
	return nil
}

func (s *Store) MarkJobFailed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.findJob(id); j != nil {
		// Failure keeps lastRun so the job retries with normal priority.
		j.Status = models.JobFailed
	}
	return nil
}

func (s *Store) MarkJobCompleted(_ context.Context, id int64, totalFound int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.findJob(id); j != nil {
		now := time.Now()
		j.Status = models.JobCompleted
		j.LastRun = &now
		j.TotalFound = totalFound
	}
	return nil
}

func (s *Store) ListJobs(_ context.Context) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Job)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *Store) BusinessExists(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.businesses[fingerprint]
	return ok, nil
}

func (s *Store) UpsertBusiness(_ context.Context, b *models.Business) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existing := s.businesses[b.Fingerprint]
	cp := *b
	cp.ScrapedAt = time.Now()
	s.businesses[b.Fingerprint] = &cp
	return existing, nil
}

func (s *Store) ListBusinesses(_ context.Context, limit, offset int) ([]models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Business, 0, len(s.businesses))
	for _, b := range s.businesses {
		out = append(out, *b)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ScrapedAt.After(out[b].ScrapedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Stats(_ context.Context) (*store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &store.Stats{
		Businesses:   int64(len(s.businesses)),
		Categories:   int64(len(s.categories)),
		Districts:    int64(len(s.districts)),
		JobsByStatus: make(map[string]int64),
	}
	for _, j := range s.jobs {
		st.JobsByStatus[string(j.Status)]++
	}
	for _, b := range s.businesses {
		if st.LastScrapedAt == nil || b.ScrapedAt.After(*st.LastScrapedAt) {
			t := b.ScrapedAt
			st.LastScrapedAt = &t
		}
	}
	return st, nil
}
