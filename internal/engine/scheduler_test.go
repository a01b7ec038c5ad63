package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/map-harvest/harvest/internal/store/memory"
)

func TestSyncJobsMaterializesPlan(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	plan := Plan{
		City:       "Ankara",
		Districts:  []string{"Çankaya", "Keçiören"},
		Categories: []string{"Kafe", "Restoran", "Eczane"},
	}
	sched := NewScheduler(st, plan)

	require.NoError(t, sched.SyncJobs(ctx))
	jobs, err := st.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 6, "one job per (category, district) pair")

	// Re-syncing the same plan must not duplicate anything.
	require.NoError(t, sched.SyncJobs(ctx))
	jobs, err = st.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 6)
}

func TestSyncJobsGrowsWithPlan(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	sched := NewScheduler(st, Plan{City: "Ankara", Districts: []string{"Çankaya"}, Categories: []string{"Kafe"}})
	require.NoError(t, sched.SyncJobs(ctx))

	// A widened plan adds the missing pairs and keeps existing jobs.
	wider := NewScheduler(st, Plan{City: "Ankara", Districts: []string{"Çankaya", "Mamak"}, Categories: []string{"Kafe"}})
	require.NoError(t, wider.SyncJobs(ctx))

	jobs, err := st.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestSyncJobsRejectsEmptyPlan(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	cases := []Plan{
		{Districts: []string{"Çankaya"}, Categories: []string{"Kafe"}},
		{City: "Ankara", Categories: []string{"Kafe"}},
		{City: "Ankara", Districts: []string{"Çankaya"}},
	}
	for _, p := range cases {
		assert.Error(t, NewScheduler(st, p).SyncJobs(ctx))
	}
}
