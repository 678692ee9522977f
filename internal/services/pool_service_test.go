package services_test

import (
	"testing"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/models"
	"yieldpool/internal/services"

	"github.com/stretchr/testify/require"
)

func TestPoolService_CreatePool(t *testing.T) {
	l, _ := newLedger(t)
	openPool(t, l, "alice", "p1", nil)

	pool, err := l.Pools.GetPool(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "alice", pool.Creator)
	require.True(t, pool.IsActive)
	require.False(t, pool.IsCompleted)
	require.Equal(t, models.VisibilityPublic, pool.Visibility)
	require.Equal(t, pool.StartTime+int64(poolLength.Seconds()), pool.EndTime)

	requireBalance(t, l, rewardToken, models.ReserveAccount("p1"), models.Tokens(1000))
	requireBalance(t, l, "PULSE", models.AccountFeeCustody, models.Tokens(1))

	_, err = l.Pools.CreatePool(ctx, "alice", poolRequest("p1"))
	require.ErrorIs(t, err, common.ErrDuplicatePool)
}

func TestPoolService_CreatePoolChecks(t *testing.T) {
	l, _ := newLedger(t)
	fund(t, l, "PULSE", "alice", models.Tokens(100))
	fund(t, l, rewardToken, "alice", models.Tokens(5000))

	_, err := l.Escrow.Deposit(ctx, "alice", "p1", models.Tokens(10), poolLength)
	require.NoError(t, err)
	_, err = l.Escrow.Burn(ctx, "alice", "p1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		creator string
		edit    func(r *services.CreatePoolRequest)
		wantErr error
	}{
		{"fee below minimum", "alice", func(r *services.CreatePoolRequest) { r.CreationFee = models.MustParseAmount("0.5") }, common.ErrInvalidArgument},
		{"no reward", "alice", func(r *services.CreatePoolRequest) { r.TotalRewardAmount = models.Zero() }, common.ErrInvalidArgument},
		{"no capacity", "alice", func(r *services.CreatePoolRequest) { r.MaxParticipants = 0 }, common.ErrInvalidArgument},
		{"unknown visibility", "alice", func(r *services.CreatePoolRequest) { r.Visibility = "secret" }, common.ErrInvalidArgument},
		{"duration mismatch", "alice", func(r *services.CreatePoolRequest) { r.Duration = time.Hour }, common.ErrInvalidArgument},
		{"not the depositor", "bob", nil, common.ErrUnauthorized},
		{"reward not held", "alice", func(r *services.CreatePoolRequest) { r.TotalRewardAmount = models.Tokens(10_000) }, common.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := poolRequest("p1")
			if tt.edit != nil {
				tt.edit(&req)
			}
			_, err := l.Pools.CreatePool(ctx, tt.creator, req)
			require.ErrorIs(t, err, tt.wantErr)

			_, err = l.Pools.GetPool(ctx, "p1")
			require.ErrorIs(t, err, common.ErrNotFound)
		})
	}

	req := poolRequest("p1")
	req.Duration = poolLength
	_, err = l.Pools.CreatePool(ctx, "alice", req)
	require.NoError(t, err)
}

func TestPoolService_JoinPoolCapacity(t *testing.T) {
	l, _ := newLedger(t)
	openPool(t, l, "alice", "p4", func(r *services.CreatePoolRequest) { r.MaxParticipants = 1 })

	joinWith(t, l, "bob", "p4", 1)

	fund(t, l, collection, "carol", models.NewAmount(1))
	_, err := l.Pools.JoinPool(ctx, "carol", "p4")
	require.ErrorIs(t, err, common.ErrPoolFull)

	_, err = l.Pools.JoinPool(ctx, "bob", "p4")
	require.ErrorIs(t, err, common.ErrAlreadyJoined)

	pool, err := l.Pools.GetPool(ctx, "p4")
	require.NoError(t, err)
	require.Equal(t, int64(1), pool.ParticipantCount)
	require.Equal(t, int64(1), pool.TotalWeight)
}

func TestPoolService_JoinPoolChecks(t *testing.T) {
	l, clock := newLedger(t)
	openPool(t, l, "alice", "p1", func(r *services.CreatePoolRequest) { r.MinimumNftBalance = 2 })

	_, err := l.Pools.JoinPool(ctx, "bob", "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = l.Pools.JoinPool(ctx, "bob", "p1")
	require.ErrorIs(t, err, common.ErrInsufficientNFTBalance)

	fund(t, l, collection, "bob", models.NewAmount(1))
	_, err = l.Pools.JoinPool(ctx, "bob", "p1")
	require.ErrorIs(t, err, common.ErrInsufficientNFTBalance)

	joinWith(t, l, "bob", "p1", 2)

	p, err := l.Pools.GetParticipant(ctx, "p1", "bob")
	require.NoError(t, err)
	require.Equal(t, int64(3), p.NftBalanceAtJoin)

	clock.Advance(poolLength)
	fund(t, l, collection, "carol", models.NewAmount(5))
	_, err = l.Pools.JoinPool(ctx, "carol", "p1")
	require.ErrorIs(t, err, common.ErrPoolInactive)
}

func TestPoolService_Whitelist(t *testing.T) {
	l, _ := newLedger(t)
	openPool(t, l, "alice", "wl", func(r *services.CreatePoolRequest) { r.Visibility = models.VisibilityWhitelist })
	fund(t, l, collection, "bob", models.NewAmount(1))

	_, err := l.Pools.JoinPool(ctx, "bob", "wl")
	require.ErrorIs(t, err, common.ErrNotWhitelisted)

	_, err = l.Pools.AddToWhitelist(ctx, "bob", "wl", []string{"bob"})
	require.ErrorIs(t, err, common.ErrUnauthorized)

	r, err := l.Pools.AddToWhitelist(ctx, "alice", "wl", []string{"bob", "carol"})
	require.NoError(t, err)
	require.Len(t, r.Events, 2)

	r, err = l.Pools.AddToWhitelist(ctx, "alice", "wl", []string{"bob"})
	require.NoError(t, err)
	require.Empty(t, r.Events)

	_, err = l.Pools.JoinPool(ctx, "bob", "wl")
	require.NoError(t, err)
}

func TestPoolService_PremiumTier(t *testing.T) {
	l, _ := newLedger(t)
	openPool(t, l, "alice", "vip", func(r *services.CreatePoolRequest) { r.Visibility = models.VisibilityPremium })
	fund(t, l, collection, "bob", models.NewAmount(1))

	_, err := l.Pools.JoinPool(ctx, "bob", "vip")
	require.ErrorIs(t, err, common.ErrPremiumTierRequired)

	fund(t, l, "PULSE", "bob", models.Tokens(1000))
	_, err = l.Pools.JoinPool(ctx, "bob", "vip")
	require.NoError(t, err)
}

func TestPoolService_CompletePool(t *testing.T) {
	l, clock := newLedger(t)
	openPool(t, l, "alice", "p1", nil)
	joinWith(t, l, "bob", "p1", 1)

	_, err := l.Pools.CompletePool(ctx, "keeper", "p1")
	require.ErrorIs(t, err, common.ErrNotYetEnded)

	ok, err := l.Pools.CanCompletePool(ctx, "p1")
	require.NoError(t, err)
	require.False(t, ok)

	clock.Advance(poolLength)

	ok, err = l.Pools.CanCompletePool(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	r, err := l.Pools.CompletePool(ctx, "keeper", "p1")
	require.NoError(t, err)
	require.Contains(t, eventTypes(r), models.EventPoolCompleted)
	require.Contains(t, eventTypes(r), models.EventEscrowCompleted)

	pool, err := l.Pools.GetPool(ctx, "p1")
	require.NoError(t, err)
	require.False(t, pool.IsActive)
	require.True(t, pool.IsCompleted)

	state, err := l.Lottery.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, state.EligibleParticipants)
	// 2.5 from the burn plus the 1 token creation fee
	requireAmount(t, models.MustParseAmount("3.5"), state.CurrentPotAmount)
	requireBalance(t, l, "PULSE", models.AccountFeeCustody, models.Zero())

	r, err = l.Pools.CompletePool(ctx, "keeper", "p1")
	require.NoError(t, err)
	require.Empty(t, r.Events)

	ok, err = l.Pools.CanCompletePool(ctx, "p1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPoolService_CompleteEndedPools(t *testing.T) {
	l, clock := newLedger(t)
	openPool(t, l, "alice", "short", nil)
	clock.Advance(10 * day)
	openPool(t, l, "bob", "long", nil)

	clock.Advance(poolLength - 5*day)
	n, err := l.Pools.CompleteEndedPools(ctx, "keeper")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	active, err := l.Pools.ListPools(ctx, services.PoolFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "long", active[0].PoolId)

	byCreator, err := l.Pools.ListPools(ctx, services.PoolFilter{Creator: "alice"})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	require.Equal(t, "short", byCreator[0].PoolId)

	n, err = l.Pools.CompleteEndedPools(ctx, "keeper")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPoolService_ListParticipants(t *testing.T) {
	l, _ := newLedger(t)
	openPool(t, l, "alice", "p1", nil)
	joinWith(t, l, "bob", "p1", 2)
	joinWith(t, l, "carol", "p1", 3)

	list, err := l.Pools.ListParticipants(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = l.Pools.ListParticipants(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	pool, err := l.Pools.GetPool(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(5), pool.TotalWeight)
	requireAmount(t, models.Tokens(200), pool.RewardPerNft(pool.TotalWeight))
}
