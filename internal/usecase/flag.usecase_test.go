package usecase

import (
	"context"
	"testing"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGate(repo FlagRepo) *FeatureGate {
	return NewFeatureGate(repo, nil, zap.NewNop())
}

func TestEnabled_UnknownFlagIsOff(t *testing.T) {
	gate := newTestGate(newFakeFlagRepo())

	on, err := gate.Enabled(context.Background(), "ghost_flag", "user-1")

	require.NoError(t, err)
	assert.False(t, on)
}

func TestEnabled_KillSwitchOverridesEverything(t *testing.T) {
	gate := newTestGate(newFakeFlagRepo())
	ctx := context.Background()

	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{
		Name:              "new_checkout",
		Enabled:           false,
		RolloutPercentage: 100,
		TargetUsers:       []string{"user-1"},
	}))

	on, err := gate.Enabled(ctx, "new_checkout", "user-1")
	require.NoError(t, err)
	assert.False(t, on, "disabled flag is off even for targeted users at 100%")
}

func TestEnabled_TargetUsersBypassRollout(t *testing.T) {
	gate := newTestGate(newFakeFlagRepo())
	ctx := context.Background()

	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{
		Name:              "beta_search",
		Enabled:           true,
		RolloutPercentage: 0,
		TargetUsers:       []string{"qa-1", "qa-2"},
	}))

	on, err := gate.Enabled(ctx, "beta_search", "qa-1")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = gate.Enabled(ctx, "beta_search", "someone-else")
	require.NoError(t, err)
	assert.False(t, on, "0% rollout is off outside the allow-list")
}

func TestEnabled_FullRollout(t *testing.T) {
	gate := newTestGate(newFakeFlagRepo())
	ctx := context.Background()

	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{
		Name:              "dark_mode",
		Enabled:           true,
		RolloutPercentage: 100,
	}))

	for _, user := range []string{"a", "b", "c", "d"} {
		on, err := gate.Enabled(ctx, "dark_mode", user)
		require.NoError(t, err)
		assert.True(t, on)
	}
}

func TestEnabled_StickyAcrossCalls(t *testing.T) {
	gate := newTestGate(newFakeFlagRepo())
	ctx := context.Background()

	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{
		Name:              "ranked_feed",
		Enabled:           true,
		RolloutPercentage: 40,
	}))

	first, err := gate.Enabled(ctx, "ranked_feed", "user-77")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := gate.Enabled(ctx, "ranked_feed", "user-77")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUpsert_NilTargetUsersBecomesEmptyList(t *testing.T) {
	repo := newFakeFlagRepo()
	gate := newTestGate(repo)
	ctx := context.Background()

	// Percentage-only flags omit target_users; the column is NOT NULL, so a
	// nil slice must never reach storage.
	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{
		Name:              "ab_pricing",
		Enabled:           true,
		RolloutPercentage: 25,
	}))

	stored, err := repo.Get(ctx, "ab_pricing")
	require.NoError(t, err)
	assert.NotNil(t, stored.TargetUsers)
	assert.Empty(t, stored.TargetUsers)

	require.NoError(t, gate.UpsertTx(ctx, &fakeTx{}, &domain.FeatureFlag{
		Name:              "ab_shipping",
		Enabled:           true,
		RolloutPercentage: 50,
	}))

	stored, err = repo.Get(ctx, "ab_shipping")
	require.NoError(t, err)
	assert.NotNil(t, stored.TargetUsers)
}

func TestEnabled_ReadThroughCache(t *testing.T) {
	repo := newFakeFlagRepo()
	c, _ := newFakeCache()
	gate := NewFeatureGate(repo, c, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{
		Name:              "ranked_feed",
		Enabled:           true,
		RolloutPercentage: 100,
	}))

	for i := 0; i < 3; i++ {
		on, err := gate.Enabled(ctx, "ranked_feed", "user-1")
		require.NoError(t, err)
		assert.True(t, on)
	}
	assert.Equal(t, 1, repo.getCalls, "repeat evaluations served from cache")

	// An upsert invalidates, so the next evaluation sees the new state.
	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{
		Name:              "ranked_feed",
		Enabled:           false,
		RolloutPercentage: 100,
	}))

	on, err := gate.Enabled(ctx, "ranked_feed", "user-1")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, 2, repo.getCalls)
}

func TestUpsert_Validation(t *testing.T) {
	gate := newTestGate(newFakeFlagRepo())
	ctx := context.Background()

	err := gate.Upsert(ctx, &domain.FeatureFlag{RolloutPercentage: 10})
	assert.ErrorIs(t, err, xerrors.ErrFlagNameRequired)

	err = gate.Upsert(ctx, &domain.FeatureFlag{Name: "x", RolloutPercentage: 101})
	assert.ErrorIs(t, err, xerrors.ErrInvalidRollout)

	err = gate.Upsert(ctx, &domain.FeatureFlag{Name: "x", RolloutPercentage: -1})
	assert.ErrorIs(t, err, xerrors.ErrInvalidRollout)
}

func TestDelete_FlagDisappears(t *testing.T) {
	gate := newTestGate(newFakeFlagRepo())
	ctx := context.Background()

	require.NoError(t, gate.Upsert(ctx, &domain.FeatureFlag{Name: "temp", Enabled: true, RolloutPercentage: 100}))
	require.NoError(t, gate.Delete(ctx, "temp"))

	_, err := gate.Get(ctx, "temp")
	assert.ErrorIs(t, err, xerrors.ErrFlagNotFound)

	on, err := gate.Enabled(ctx, "temp", "user-1")
	require.NoError(t, err)
	assert.False(t, on)
}
