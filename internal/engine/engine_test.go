package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/map-harvest/harvest/internal/engine/extract"
	"github.com/map-harvest/harvest/internal/store/memory"
	"github.com/map-harvest/harvest/pkg/models"
)

type fakeSession struct {
	discover func(ctx context.Context, query string) ([]models.Candidate, error)
	fetch    func(ctx context.Context, cand models.Candidate) (*models.Business, error)
	shots    []string
	closed   bool
}

func (f *fakeSession) DiscoverListings(ctx context.Context, query string) ([]models.Candidate, error) {
	return f.discover(ctx, query)
}

func (f *fakeSession) FetchBusiness(ctx context.Context, cand models.Candidate) (*models.Business, error) {
	if f.fetch == nil {
		return &models.Business{Name: cand.Name}, nil
	}
	return f.fetch(ctx, cand)
}

func (f *fakeSession) CaptureDebugShot(_ context.Context, name string) error {
	f.shots = append(f.shots, name)
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func factoryFor(sess *fakeSession) SessionFactory {
	return func(_ context.Context, _ func() bool) (Session, error) {
		return sess, nil
	}
}

func testPlan() Plan {
	return Plan{City: "Ankara", Districts: []string{"Çankaya"}, Categories: []string{"Kafe"}}
}

// A long breather parks the run after its first pass so tests can
// inspect a deterministic single-pass state before stopping the engine.
func testOpts() Options {
	return Options{JobBreather: time.Minute}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func waitForJobStatus(t *testing.T, st *memory.Store, status models.JobStatus) {
	t.Helper()
	waitFor(t, func() bool {
		jobs, err := st.ListJobs(context.Background())
		return err == nil && len(jobs) == 1 && jobs[0].Status == status
	})
}

func TestRunProcessesJobAndDeduplicates(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	// "Cafe Luna" is already in the store; only "Cafe Mars" should
	// trigger a detail fetch.
	known := &models.Business{
		Fingerprint: extract.Fingerprint("Cafe Luna", "Çankaya"),
		Name:        "Cafe Luna",
		City:        "Ankara", District: "Çankaya", Category: "Kafe",
	}
	_, err := st.UpsertBusiness(ctx, known)
	require.NoError(t, err)

	var fetched []string
	sess := &fakeSession{
		discover: func(_ context.Context, query string) ([]models.Candidate, error) {
			assert.Equal(t, "Kafe, Çankaya, Ankara", query)
			return []models.Candidate{
				{Link: "https://maps.example/place/luna", Name: "Cafe Luna"},
				{Link: "https://maps.example/place/mars", Name: "Cafe Mars"},
			}, nil
		},
		fetch: func(_ context.Context, cand models.Candidate) (*models.Business, error) {
			fetched = append(fetched, cand.Name)
			return &models.Business{Name: cand.Name, Rating: 4.2}, nil
		},
	}

	e := New(st, factoryFor(sess), testPlan(), testOpts(), zerolog.Nop())
	require.NoError(t, e.Start(ctx))
	waitForJobStatus(t, st, models.JobCompleted)
	require.NoError(t, e.Stop())
	e.Wait()

	status := e.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.ProcessedCount)
	assert.Equal(t, []string{"Cafe Mars"}, fetched, "known fingerprint must be skipped before detail navigation")

	logs := strings.Join(status.Logs, "\n")
	assert.Contains(t, logs, "SKIP Cafe Luna")
	assert.Contains(t, logs, "NEW Cafe Mars")

	jobs, err := st.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 2, jobs[0].TotalFound, "totalFound counts candidates, not inserts")

	list, err := st.ListBusinesses(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.True(t, sess.closed, "session is closed on run teardown")

	for _, b := range list {
		if b.Name == "Cafe Mars" {
			assert.Equal(t, "Ankara", b.City)
			assert.Equal(t, "Çankaya", b.District)
			assert.Equal(t, "Kafe", b.Category)
			assert.Equal(t, "https://maps.example/place/mars", b.DetailURL)
			assert.NotEmpty(t, b.Fingerprint)
		}
	}
}

func TestRunRevisitsJobsRoundRobin(t *testing.T) {
	st := memory.New()
	var passes atomic.Int64
	sess := &fakeSession{
		discover: func(_ context.Context, _ string) ([]models.Candidate, error) {
			passes.Add(1)
			return []models.Candidate{
				{Link: "https://maps.example/place/luna", Name: "Cafe Luna"},
			}, nil
		},
	}

	e := New(st, factoryFor(sess), testPlan(), Options{JobBreather: time.Millisecond}, zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))

	// A single-pair plan must be re-picked after completion: the run
	// keeps refreshing the least-recently-run job until stopped.
	waitFor(t, func() bool { return passes.Load() >= 3 })
	require.NoError(t, e.Stop())
	e.Wait()

	jobs, err := st.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].LastRun)
	assert.False(t, e.Status().Running)
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	st := memory.New()
	release := make(chan struct{})
	sess := &fakeSession{
		discover: func(ctx context.Context, _ string) ([]models.Candidate, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, nil
		},
	}

	e := New(st, factoryFor(sess), testPlan(), testOpts(), zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))
	waitFor(t, func() bool { return e.Status().Running })

	assert.ErrorIs(t, e.Start(context.Background()), ErrAlreadyRunning)

	close(release)
	require.NoError(t, e.Stop())
	e.Wait()
	assert.False(t, e.Status().Running)
}

func TestStopHaltsRunPromptly(t *testing.T) {
	st := memory.New()
	started := make(chan struct{})
	sess := &fakeSession{
		discover: func(_ context.Context, _ string) ([]models.Candidate, error) {
			select {
			case <-started:
			default:
				close(started)
			}
			cands := make([]models.Candidate, 50)
			for i := range cands {
				cands[i] = models.Candidate{
					Link: fmt.Sprintf("https://maps.example/place/%d", i),
					Name: fmt.Sprintf("Place %d", i),
				}
			}
			return cands, nil
		},
		fetch: func(_ context.Context, cand models.Candidate) (*models.Business, error) {
			time.Sleep(10 * time.Millisecond)
			return &models.Business{Name: cand.Name}, nil
		},
	}

	plan := testPlan()
	plan.Categories = []string{"Kafe", "Restoran", "Eczane"}
	e := New(st, factoryFor(sess), plan, testOpts(), zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))

	<-started
	require.NoError(t, e.Stop())

	done := make(chan struct{})
	go func() { e.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop in time")
	}
	assert.False(t, e.Status().Running)
	assert.True(t, sess.closed)
}

func TestStopWithoutRunReturnsError(t *testing.T) {
	e := New(memory.New(), factoryFor(&fakeSession{}), testPlan(), testOpts(), zerolog.Nop())
	assert.ErrorIs(t, e.Stop(), ErrNotRunning)
}

func TestDiscoveryErrorFailsJob(t *testing.T) {
	st := memory.New()
	sess := &fakeSession{
		discover: func(_ context.Context, _ string) ([]models.Candidate, error) {
			return nil, errors.New("feed never appeared")
		},
	}

	e := New(st, factoryFor(sess), testPlan(), testOpts(), zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))
	waitForJobStatus(t, st, models.JobFailed)
	require.NoError(t, e.Stop())
	e.Wait()

	jobs, err := st.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
	assert.Nil(t, jobs[0].LastRun, "failure must not change the job's retry priority")

	logs := strings.Join(e.Status().Logs, "\n")
	assert.Contains(t, logs, "FAILED Kafe / Çankaya")
}

func TestZeroCandidatesCapturesDebugShot(t *testing.T) {
	st := memory.New()
	sess := &fakeSession{
		discover: func(_ context.Context, _ string) ([]models.Candidate, error) {
			return nil, nil
		},
	}

	e := New(st, factoryFor(sess), testPlan(), testOpts(), zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))
	waitForJobStatus(t, st, models.JobCompleted)
	require.NoError(t, e.Stop())
	e.Wait()

	require.Len(t, sess.shots, 1)
	assert.Equal(t, "empty-kafe-cankaya", sess.shots[0])

	jobs, _ := st.ListJobs(context.Background())
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobCompleted, jobs[0].Status)
	assert.Equal(t, 0, jobs[0].TotalFound)
}

func TestStaleRunningStateIsRecovered(t *testing.T) {
	st := memory.New()
	sess := &fakeSession{
		discover: func(_ context.Context, _ string) ([]models.Candidate, error) {
			return nil, nil
		},
	}

	e := New(st, factoryFor(sess), testPlan(), testOpts(), zerolog.Nop())

	// Simulate a run that died without clearing its flag.
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	require.NoError(t, e.Start(context.Background()))
	waitForJobStatus(t, st, models.JobCompleted)
	require.NoError(t, e.Stop())
	e.Wait()
	assert.False(t, e.Status().Running)
}

func TestSessionLaunchFailureClearsRunning(t *testing.T) {
	st := memory.New()
	factory := func(_ context.Context, _ func() bool) (Session, error) {
		return nil, errors.New("chrome not found")
	}

	e := New(st, factory, testPlan(), testOpts(), zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))
	e.Wait()

	status := e.Status()
	assert.False(t, status.Running)
	assert.Contains(t, strings.Join(status.Logs, "\n"), "browser launch failed")
}
