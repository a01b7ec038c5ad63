// Package engine drives the crawl: it turns the configured plan into
// jobs, walks them least-recently-run first, and funnels every
// discovered listing through deduplication and detail extraction into
// the store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/map-harvest/harvest/internal/cache"
	"github.com/map-harvest/harvest/internal/engine/extract"
	"github.com/map-harvest/harvest/internal/metrics"
	"github.com/map-harvest/harvest/internal/store"
	"github.com/map-harvest/harvest/pkg/models"
)

var (
	// ErrAlreadyRunning is returned by Start when a run is in progress.
	ErrAlreadyRunning = errors.New("engine: already running")
	// ErrNotRunning is returned by Stop when no run is in progress.
	ErrNotRunning = errors.New("engine: not running")
)

// Session is one live browser session. Implementations own navigation,
// consent handling and pacing; the engine only sees parsed results.
type Session interface {
	// DiscoverListings runs a search query and returns the candidate
	// listings found in the fully scrolled results feed.
	DiscoverListings(ctx context.Context, query string) ([]models.Candidate, error)

	// FetchBusiness opens a listing's detail page and extracts a full
	// business record. City, district, category and fingerprint are
	// filled in by the caller.
	FetchBusiness(ctx context.Context, candidate models.Candidate) (*models.Business, error)

	// CaptureDebugShot saves a screenshot of the current page for
	// offline diagnosis. Best effort.
	CaptureDebugShot(ctx context.Context, name string) error

	Close() error
}

// SessionFactory creates a Session for a run. The stopped callback
// reports whether the run has been asked to halt; sessions poll it
// inside long waits so a stop lands promptly.
type SessionFactory func(ctx context.Context, stopped func() bool) (Session, error)

// Options tunes engine behaviour that is not part of the crawl plan.
type Options struct {
	// JobBreather is the pause between jobs. Zero means the default.
	JobBreather time.Duration
	// FingerprintTTL bounds how long a fingerprint stays in the
	// in-memory dedup cache. Zero means the default.
	FingerprintTTL time.Duration
}

const defaultJobBreather = 3 * time.Second

// Engine owns the crawl lifecycle. One run at a time; Start and Stop
// are safe to call from any goroutine.
type Engine struct {
	store   store.Store
	factory SessionFactory
	plan    Plan
	opts    Options
	log     zerolog.Logger

	rep  *reporter
	seen *cache.FingerprintCache

	mu      sync.Mutex
	running bool
	session Session
	stop    chan struct{}
	done    chan struct{}
}

func New(st store.Store, factory SessionFactory, plan Plan, opts Options, log zerolog.Logger) *Engine {
	if opts.JobBreather <= 0 {
		opts.JobBreather = defaultJobBreather
	}
	return &Engine{
		store:   st,
		factory: factory,
		plan:    plan,
		opts:    opts,
		log:     log.With().Str("component", "engine").Logger(),
		rep:     newReporter(log),
		seen:    cache.New(0, opts.FingerprintTTL),
	}
}

// Start launches a run in the background. It is an error to start while
// a run is active, but a stale running flag left by a crashed run (no
// live session) is reset instead of wedging the engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()

	if e.running {
		alive := false
		if e.done != nil {
			select {
			case <-e.done:
			default:
				alive = true
			}
		}
		if alive {
			e.mu.Unlock()
			return ErrAlreadyRunning
		}
		// Crashed run never cleared its flag. Recover and carry on.
		e.log.Warn().Msg("stale running state detected, resetting")
		e.running = false
	}

	runID := uuid.NewString()
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	stop, done := e.stop, e.done
	e.mu.Unlock()

	e.rep.start(runID)
	e.rep.logf("engine starting (run %s)", runID)

	go e.run(ctx, runID, stop, done)
	return nil
}

// Stop asks the active run to halt and returns immediately. The run
// finishes its current page interaction and shuts down.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return ErrNotRunning
	}
	select {
	case <-e.stop:
	default:
		close(e.stop)
		e.rep.logf("stop requested")
	}
	return nil
}

// Wait blocks until the active run has fully shut down. Returns
// immediately if no run is active.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns a point-in-time snapshot of the run state and the
// rolling activity log.
func (e *Engine) Status() models.EngineStatus {
	return e.rep.snapshot()
}

func (e *Engine) stopped(stop chan struct{}) func() bool {
	return func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}
}

func (e *Engine) run(ctx context.Context, runID string, stop, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("run panicked")
			e.rep.logf("run aborted: internal error")
		}
		e.teardown()
	}()

	stopped := e.stopped(stop)

	sched := NewScheduler(e.store, e.plan)
	if err := sched.SyncJobs(ctx); err != nil {
		e.log.Error().Err(err).Msg("job sync failed")
		e.rep.logf("job sync failed: %v", err)
		return
	}

	sess, err := e.factory(ctx, stopped)
	if err != nil {
		e.log.Error().Err(err).Msg("session launch failed")
		e.rep.logf("browser launch failed: %v", err)
		return
	}
	e.mu.Lock()
	e.session = sess
	e.mu.Unlock()

	e.log.Info().Str("run_id", runID).Str("city", e.plan.City).
		Int("districts", len(e.plan.Districts)).
		Int("categories", len(e.plan.Categories)).
		Msg("run started")

	// Round-robin over the plan until stopped: the least-recently-run
	// job is always picked next, so once every pair has been visited
	// the run keeps refreshing the stalest one.
	for {
		if stopped() || ctx.Err() != nil {
			e.rep.logf("run stopped")
			return
		}

		job, err := sched.NextJob(ctx)
		if errors.Is(err, store.ErrNoJob) {
			e.rep.logf("no eligible jobs, run complete")
			return
		}
		if err != nil {
			e.log.Error().Err(err).Msg("job fetch failed")
			e.rep.logf("job fetch failed: %v", err)
			return
		}

		e.processJob(ctx, sess, job, stopped)

		if !e.sleepUnlessStopped(e.opts.JobBreather, stop) {
			e.rep.logf("run stopped")
			return
		}
	}
}

func (e *Engine) teardown() {
	e.mu.Lock()
	sess := e.session
	e.session = nil
	e.running = false
	e.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			e.log.Warn().Err(err).Msg("session close failed")
		}
	}
	e.rep.finish()
	e.rep.logf("engine stopped")
}

func (e *Engine) processJob(ctx context.Context, sess Session, job *models.Job, stopped func() bool) {
	e.rep.setJob(job.Category, job.District)
	e.rep.logf("job started: %s / %s", job.Category, job.District)

	if err := e.store.MarkJobRunning(ctx, job.ID); err != nil {
		e.log.Error().Err(err).Int64("job_id", job.ID).Msg("mark running failed")
	}

	query := fmt.Sprintf("%s, %s, %s", job.Category, job.District, e.plan.City)
	candidates, err := sess.DiscoverListings(ctx, query)
	if err != nil {
		e.failJob(ctx, job, fmt.Errorf("discover listings: %w", err))
		return
	}

	if len(candidates) == 0 {
		// Zero hits usually means a layout change or a block page.
		// Keep evidence around before moving on.
		shot := fmt.Sprintf("empty-%s-%s", extract.Slugify(job.Category), extract.Slugify(job.District))
		if err := sess.CaptureDebugShot(ctx, shot); err != nil {
			e.log.Debug().Err(err).Msg("debug screenshot failed")
		}
		e.rep.logf("no results for %q", query)
	}

	for _, cand := range candidates {
		if stopped() || ctx.Err() != nil {
			e.rep.logf("job interrupted: %s / %s", job.Category, job.District)
			return
		}
		e.processCandidate(ctx, sess, job, query, cand)
	}

	if err := e.store.MarkJobCompleted(ctx, job.ID, len(candidates)); err != nil {
		e.log.Error().Err(err).Int64("job_id", job.ID).Msg("mark completed failed")
		return
	}
	metrics.JobsCompleted.Inc()
	e.rep.logf("job completed: %s / %s (%d found)", job.Category, job.District, len(candidates))
}

func (e *Engine) failJob(ctx context.Context, job *models.Job, cause error) {
	e.log.Error().Err(cause).Int64("job_id", job.ID).
		Str("category", job.Category).Str("district", job.District).
		Msg("job failed")
	if err := e.store.MarkJobFailed(ctx, job.ID); err != nil {
		e.log.Error().Err(err).Int64("job_id", job.ID).Msg("mark failed failed")
	}
	metrics.JobsFailed.Inc()
	e.rep.logf("FAILED %s / %s: %v", job.Category, job.District, cause)
}

// processCandidate decides the fate of one listing: skip on a known
// fingerprint before any detail navigation, otherwise fetch, enrich
// and persist.
func (e *Engine) processCandidate(ctx context.Context, sess Session, job *models.Job, query string, cand models.Candidate) {
	name := extract.CleanText(cand.Name)
	if name == "" {
		return
	}
	fp := extract.Fingerprint(name, job.District)

	if e.seen.Contains(fp) {
		metrics.CandidatesSkipped.Inc()
		e.rep.logf("SKIP %s (cached)", name)
		return
	}
	known, err := e.store.BusinessExists(ctx, fp)
	if err != nil {
		e.log.Error().Err(err).Str("name", name).Msg("dedup lookup failed")
		return
	}
	if known {
		e.seen.Add(fp)
		metrics.CandidatesSkipped.Inc()
		e.rep.logf("SKIP %s", name)
		return
	}

	biz, err := sess.FetchBusiness(ctx, cand)
	if err != nil {
		metrics.ExtractionFailures.Inc()
		e.log.Warn().Err(err).Str("name", name).Msg("detail extraction failed")
		e.rep.logf("extraction failed for %s: %v", name, err)
		return
	}

	biz.Fingerprint = fp
	biz.City = e.plan.City
	biz.District = job.District
	biz.Category = job.Category
	biz.Query = query
	biz.DetailURL = cand.Link
	biz.ScrapedAt = time.Now()

	isUpdate, err := e.store.UpsertBusiness(ctx, biz)
	if err != nil {
		e.log.Error().Err(err).Str("name", biz.Name).Msg("persist failed")
		e.rep.logf("persist failed for %s: %v", biz.Name, err)
		return
	}
	e.seen.Add(fp)
	e.rep.addProcessed(1)
	if isUpdate {
		metrics.BusinessesUpdated.Inc()
		e.rep.logf("UPDATE %s", biz.Name)
	} else {
		metrics.BusinessesNew.Inc()
		e.rep.logf("NEW %s", biz.Name)
	}
}

// sleepUnlessStopped waits for d, returning false if a stop request
// arrives first.
func (e *Engine) sleepUnlessStopped(d time.Duration, stop chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
