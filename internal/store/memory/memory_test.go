package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/map-harvest/harvest/internal/store"
	"github.com/map-harvest/harvest/pkg/models"
)

func TestUpsertBusinessIsUpdateOnSecondCall(t *testing.T) {
	s := New()
	ctx := context.Background()

	b := &models.Business{Fingerprint: "abc", Name: "Cafe Luna", City: "Ankara", District: "Çankaya", Category: "Kafe"}

	isUpdate, err := s.UpsertBusiness(ctx, b)
	require.NoError(t, err)
	assert.False(t, isUpdate)

	b.Rating = 4.8
	isUpdate, err = s.UpsertBusiness(ctx, b)
	require.NoError(t, err)
	assert.True(t, isUpdate)

	list, err := s.ListBusinesses(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1, "same fingerprint must not create a second row")
	assert.InDelta(t, 4.8, list[0].Rating, 0.001, "upsert overwrites scraped fields")
}

func TestRefUpsertsAreIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	c1, err := s.UpsertCity(ctx, "Ankara", "ankara")
	require.NoError(t, err)
	c2, err := s.UpsertCity(ctx, "Ankara", "ankara")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	d1, _ := s.UpsertDistrict(ctx, c1, "Çankaya", "cankaya")
	d2, _ := s.UpsertDistrict(ctx, c1, "Çankaya", "cankaya")
	assert.Equal(t, d1, d2)
}

func TestNextJobOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	cityID, _ := s.UpsertCity(ctx, "Ankara", "ankara")
	distID, _ := s.UpsertDistrict(ctx, cityID, "Çankaya", "cankaya")
	cat1, _ := s.UpsertCategory(ctx, "Kafe", "kafe")
	cat2, _ := s.UpsertCategory(ctx, "Restoran", "restoran")
	cat3, _ := s.UpsertCategory(ctx, "Eczane", "eczane")

	require.NoError(t, s.EnsureJob(ctx, cat1, distID)) // J1: never run
	require.NoError(t, s.EnsureJob(ctx, cat2, distID)) // J2: run at t1
	require.NoError(t, s.EnsureJob(ctx, cat3, distID)) // J3: run at t2 > t1

	jobs, _ := s.ListJobs(ctx)
	require.Len(t, jobs, 3)
	require.NoError(t, s.MarkJobCompleted(ctx, jobs[1].ID, 1))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.MarkJobCompleted(ctx, jobs[2].ID, 1))

	cats := []string{"Kafe", "Restoran", "Eczane"}
	dists := []string{"Çankaya"}

	// Never-run sorts first.
	next, err := s.NextJob(ctx, cats, dists)
	require.NoError(t, err)
	assert.Equal(t, jobs[0].ID, next.ID)

	// Completing it moves it to the back; the oldest lastRun is next.
	require.NoError(t, s.MarkJobCompleted(ctx, next.ID, 0))
	next, err = s.NextJob(ctx, cats, dists)
	require.NoError(t, err)
	assert.Equal(t, jobs[1].ID, next.ID)

	require.NoError(t, s.MarkJobCompleted(ctx, next.ID, 0))
	next, err = s.NextJob(ctx, cats, dists)
	require.NoError(t, err)
	assert.Equal(t, jobs[2].ID, next.ID)
}

func TestNextJobFiltersByActivePlan(t *testing.T) {
	s := New()
	ctx := context.Background()

	cityID, _ := s.UpsertCity(ctx, "Ankara", "ankara")
	distID, _ := s.UpsertDistrict(ctx, cityID, "Çankaya", "cankaya")
	catID, _ := s.UpsertCategory(ctx, "Kafe", "kafe")
	require.NoError(t, s.EnsureJob(ctx, catID, distID))

	_, err := s.NextJob(ctx, []string{"Berber"}, []string{"Çankaya"})
	assert.ErrorIs(t, err, store.ErrNoJob, "jobs outside the active plan are not eligible")
}

func TestEnsureJobKeepsExistingState(t *testing.T) {
	s := New()
	ctx := context.Background()

	cityID, _ := s.UpsertCity(ctx, "Ankara", "ankara")
	distID, _ := s.UpsertDistrict(ctx, cityID, "Çankaya", "cankaya")
	catID, _ := s.UpsertCategory(ctx, "Kafe", "kafe")

	require.NoError(t, s.EnsureJob(ctx, catID, distID))
	jobs, _ := s.ListJobs(ctx)
	require.Len(t, jobs, 1)
	require.NoError(t, s.MarkJobCompleted(ctx, jobs[0].ID, 7))

	// Re-ensuring must not reset status, lastRun, or totalFound.
	require.NoError(t, s.EnsureJob(ctx, catID, distID))
	jobs, _ = s.ListJobs(ctx)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobCompleted, jobs[0].Status)
	assert.NotNil(t, jobs[0].LastRun)
	assert.Equal(t, 7, jobs[0].TotalFound)
}

func TestMarkJobFailedKeepsLastRun(t *testing.T) {
	s := New()
	ctx := context.Background()

	cityID, _ := s.UpsertCity(ctx, "Ankara", "ankara")
	distID, _ := s.UpsertDistrict(ctx, cityID, "Çankaya", "cankaya")
	catID, _ := s.UpsertCategory(ctx, "Kafe", "kafe")
	require.NoError(t, s.EnsureJob(ctx, catID, distID))

	jobs, _ := s.ListJobs(ctx)
	require.Len(t, jobs, 1)
	require.NoError(t, s.MarkJobCompleted(ctx, jobs[0].ID, 3))
	jobs, _ = s.ListJobs(ctx)
	firstRun := *jobs[0].LastRun

	require.NoError(t, s.MarkJobFailed(ctx, jobs[0].ID))
	jobs, _ = s.ListJobs(ctx)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
	require.NotNil(t, jobs[0].LastRun)
	assert.True(t, jobs[0].LastRun.Equal(firstRun), "failure must not change retry priority")
}

func TestMarkJobFailedOnFreshJobLeavesLastRunNil(t *testing.T) {
	s := New()
	ctx := context.Background()

	cityID, _ := s.UpsertCity(ctx, "Ankara", "ankara")
	distID, _ := s.UpsertDistrict(ctx, cityID, "Çankaya", "cankaya")
	catID, _ := s.UpsertCategory(ctx, "Kafe", "kafe")
	require.NoError(t, s.EnsureJob(ctx, catID, distID))

	jobs, _ := s.ListJobs(ctx)
	require.Len(t, jobs, 1)
	require.NoError(t, s.MarkJobFailed(ctx, jobs[0].ID))
	jobs, _ = s.ListJobs(ctx)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
	assert.Nil(t, jobs[0].LastRun)
}
