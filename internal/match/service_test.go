package match

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/matchtalk/internal/metrics"
	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/repository/memory"
)

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	dob := time.Date(2000, 6, 1, 0, 0, 0, 0, time.UTC)
	store.AddUser(model.User{ID: "u1", Username: "alice", DateOfBirth: &dob})
	store.AddUser(model.User{ID: "u2", Username: "bob"})
	svc := NewService(store.Matches(), nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func likeBoth(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Likes().Create(ctx, &model.Like{ID: "l1", LikerID: "u1", LikedID: "u2", CreatedAt: fixedNow}))
	require.NoError(t, store.Likes().Create(ctx, &model.Like{ID: "l2", LikerID: "u2", LikedID: "u1", CreatedAt: fixedNow}))
}

func TestEnsure_IsIdempotentAndOrderIndependent(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)
	likeBoth(t, store)

	matched, created, err := svc.Ensure(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.True(t, created)

	matched, created, err = svc.Ensure(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.False(t, created)

	assert.Equal(t, 1, store.MatchCount())
}

func TestEnsure_WithoutMutualLikesDoesNotMatch(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)
	require.NoError(t, store.Likes().Create(ctx, &model.Like{ID: "l1", LikerID: "u1", LikedID: "u2", CreatedAt: fixedNow}))

	matched, created, err := svc.Ensure(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.False(t, created)
	assert.Equal(t, 0, store.MatchCount())
}

func TestDissolve_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)
	likeBoth(t, store)
	_, _, err := svc.Ensure(ctx, "u1", "u2")
	require.NoError(t, err)

	deleted, err := svc.Dissolve(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Dissolve(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, deleted)

	matched, err := svc.IsMatched(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)

	st, err := svc.Status(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, st.IsMatch)
	assert.Nil(t, st.MatchedAt)

	likeBoth(t, store)
	_, _, err = svc.Ensure(ctx, "u1", "u2")
	require.NoError(t, err)

	st, err = svc.Status(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.True(t, st.IsMatch)
	require.NotNil(t, st.MatchedAt)
	assert.True(t, st.MatchedAt.Equal(fixedNow))

	self, err := svc.Status(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.False(t, self.IsMatch)
}

func TestListMatches_IncludesCounterpartAndAge(t *testing.T) {
	ctx := context.Background()
	svc, store := setup(t)
	likeBoth(t, store)
	_, _, err := svc.Ensure(ctx, "u1", "u2")
	require.NoError(t, err)

	fromBob, err := svc.ListMatches(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, fromBob, 1)
	assert.Equal(t, "alice", fromBob[0].User.Username)
	require.NotNil(t, fromBob[0].Age)
	assert.Equal(t, 25, *fromBob[0].Age)

	fromAlice, err := svc.ListMatches(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, fromAlice, 1)
	assert.Equal(t, "bob", fromAlice[0].User.Username)
	assert.Nil(t, fromAlice[0].Age)
}

func TestMetricsRecorded(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddUser(model.User{ID: "u1"})
	store.AddUser(model.User{ID: "u2"})
	likeBoth(t, store)

	reg := prometheus.NewRegistry()
	svc := NewService(store.Matches(), metrics.NewCollector(reg))

	_, _, err := svc.Ensure(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = svc.Dissolve(ctx, "u1", "u2")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		if len(mf.GetMetric()) > 0 && mf.GetMetric()[0].GetCounter() != nil {
			values[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["matchtalk_matches_created_total"])
	assert.Equal(t, 1.0, values["matchtalk_matches_dissolved_total"])
}
