package models

import "time"

// JobStatus tracks the lifecycle of one (category, district) work unit.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Job is one scheduled unit of work: harvest a single category inside a
// single district. Jobs are created lazily when a pair first appears in the
// crawl plan and are never deleted by the engine.
type Job struct {
	ID         int64      `json:"id"`
	CategoryID int64      `json:"category_id"`
	DistrictID int64      `json:"district_id"`
	Category   string     `json:"category"`
	District   string     `json:"district"`
	Status     JobStatus  `json:"status"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	TotalFound int        `json:"total_found"`
}

// Candidate is a listing discovered in the result feed before any detail
// page visit: just enough to compute the dedup fingerprint cheaply.
type Candidate struct {
	Link string `json:"link"`
	Name string `json:"name"`
}

// OpeningHours is one (day, hours) row of a weekly schedule, kept in the
// order the page presented it.
type OpeningHours struct {
	Day   string `json:"day"`
	Hours string `json:"hours"`
}

// Review is a raw review snapshot taken from the reviews tab.
type Review struct {
	Author string   `json:"author"`
	Rating int      `json:"rating"`
	Text   string   `json:"text,omitempty"`
	Time   string   `json:"time,omitempty"`
	Avatar string   `json:"avatar,omitempty"`
	Images []string `json:"images,omitempty"`
}

// MenuItem is a (name, image) pair from the optional menu tab.
type MenuItem struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// Business is the harvested entity. Fingerprint is a content-derived hash of
// (name, district) and is stable across runs: the same place always maps to
// the same row regardless of which search query discovered it.
type Business struct {
	Fingerprint        string         `json:"fingerprint"`
	Name               string         `json:"name"`
	Rating             float64        `json:"rating"`
	ReviewCount        int            `json:"review_count"`
	Address            string         `json:"address,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	Website            string         `json:"website,omitempty"`
	PriceInfo          string         `json:"price_info,omitempty"`
	PriceReportedCount int            `json:"price_reported_count"`
	OperatingHours     []OpeningHours `json:"operating_hours,omitempty"`
	ImageURL           string         `json:"image_url,omitempty"`
	GalleryImages      []string       `json:"gallery_images,omitempty"`
	Reviews            []Review       `json:"reviews,omitempty"`
	MenuItems          []MenuItem     `json:"menu_items,omitempty"`
	DetailURL          string         `json:"detail_url"`
	City               string         `json:"city"`
	District           string         `json:"district"`
	Category           string         `json:"category"`
	Query              string         `json:"query"`
	ScrapedAt          time.Time      `json:"scraped_at"`
}

// EngineStatus is the read-only snapshot exposed to observers. It is reset
// at the start of every run and mutated only by the run loop.
type EngineStatus struct {
	Running         bool       `json:"running"`
	RunID           string     `json:"run_id,omitempty"`
	CurrentCategory string     `json:"current_category,omitempty"`
	CurrentDistrict string     `json:"current_district,omitempty"`
	ProcessedCount  int        `json:"processed_count"`
	Logs            []string   `json:"logs"`
	StartTime       *time.Time `json:"start_time,omitempty"`
}
