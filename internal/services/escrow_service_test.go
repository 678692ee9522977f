package services_test

import (
	"testing"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/models"

	"github.com/stretchr/testify/require"
)

func TestEscrowService_FullLifecycle(t *testing.T) {
	l, clock := newLedger(t)

	fund(t, l, "PULSE", "alice", models.Tokens(11))
	fund(t, l, rewardToken, "alice", models.Tokens(1000))

	_, err := l.Escrow.Deposit(ctx, "alice", "p1", models.Tokens(10), poolLength)
	require.NoError(t, err)

	e, err := l.Escrow.GetPoolEscrow(ctx, "p1")
	require.NoError(t, err)
	requireAmount(t, models.Tokens(5), e.BurnAmount)
	requireAmount(t, models.Tokens(5), e.EscrowAmount)
	require.Equal(t, int64(poolLength.Seconds()), e.PoolDuration)
	requireBalance(t, l, "PULSE", "alice", models.Tokens(1))
	requireBalance(t, l, "PULSE", models.AccountEscrowCustody, models.Tokens(10))

	r, err := l.Escrow.Burn(ctx, "alice", "p1")
	require.NoError(t, err)
	burned := findEvent(t, r, models.EventBurned)
	requireAmount(t, models.Tokens(5), burned.Amount)
	require.Equal(t, models.MustParseAmount("2.5").String(), burned.Attrs["destroyed"])

	_, err = l.Escrow.Burn(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrAlreadyBurned)

	total, err := l.Burns.TotalBurned(ctx)
	require.NoError(t, err)
	requireAmount(t, models.Tokens(5), total)

	_, err = l.Pools.CreatePool(ctx, "alice", poolRequest("p1"))
	require.NoError(t, err)

	_, err = l.Escrow.Refund(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrPoolNotCompleted)

	clock.Advance(poolLength)
	_, err = l.Pools.CompletePool(ctx, "alice", "p1")
	require.NoError(t, err)

	state, err := l.Escrow.State(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, models.EscrowPoolCompleted, state)

	// anyone may trigger the refund, the depositor receives it
	r, err = l.Escrow.Refund(ctx, "bob", "p1")
	require.NoError(t, err)
	require.Equal(t, []string{models.EventRefunded}, eventTypes(r))
	requireBalance(t, l, "PULSE", "alice", models.Tokens(5))
	requireBalance(t, l, "PULSE", models.AccountEscrowCustody, models.Zero())

	_, err = l.Escrow.Refund(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrAlreadyRefunded)
	require.ErrorIs(t, err, common.ErrPoolNotCompleted)

	state, err = l.Escrow.State(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, models.EscrowRefunded, state)

	e, state, err = l.Escrow.GetPoolEscrowState(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, models.EscrowRefunded, state)
	require.True(t, e.Refunded)
	require.Equal(t, models.RefundKindRefund, e.RefundKind)

	_, _, err = l.Escrow.GetPoolEscrowState(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestEscrowService_Deposit(t *testing.T) {
	l, _ := newLedger(t)
	fund(t, l, "PULSE", "alice", models.Tokens(100))

	t.Run("odd amount burns the smaller half", func(t *testing.T) {
		_, err := l.Escrow.Deposit(ctx, "alice", "odd", models.NewAmount(7), poolLength)
		require.NoError(t, err)

		e, err := l.Escrow.GetPoolEscrow(ctx, "odd")
		require.NoError(t, err)
		requireAmount(t, models.NewAmount(3), e.BurnAmount)
		requireAmount(t, models.NewAmount(4), e.EscrowAmount)
	})

	t.Run("duplicate pool id", func(t *testing.T) {
		_, err := l.Escrow.Deposit(ctx, "alice", "dup", models.Tokens(1), poolLength)
		require.NoError(t, err)
		_, err = l.Escrow.Deposit(ctx, "bob", "dup", models.Tokens(1), poolLength)
		require.ErrorIs(t, err, common.ErrDuplicatePool)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := l.Escrow.Deposit(ctx, "alice", "zero", models.Zero(), poolLength)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
		_, err = l.Escrow.Deposit(ctx, "alice", "short", models.Tokens(1), 0)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
		_, err = l.Escrow.Deposit(ctx, "alice", "", models.Tokens(1), poolLength)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
		_, err = l.Escrow.Deposit(ctx, models.AccountEscrowCustody, "custody", models.Tokens(1), poolLength)
		require.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("insufficient funds leaves no record", func(t *testing.T) {
		_, err := l.Escrow.Deposit(ctx, "carol", "poor", models.Tokens(1), poolLength)
		require.ErrorIs(t, err, common.ErrInsufficientFunds)

		_, err = l.Escrow.GetPoolEscrow(ctx, "poor")
		require.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestEscrowService_Burn(t *testing.T) {
	l, _ := newLedger(t)
	fund(t, l, "PULSE", "alice", models.Tokens(10))

	_, err := l.Escrow.Burn(ctx, "alice", "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = l.Escrow.Deposit(ctx, "alice", "p1", models.Tokens(10), poolLength)
	require.NoError(t, err)

	_, err = l.Escrow.Burn(ctx, "mallory", "p1")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	r, err := l.Escrow.Burn(ctx, "alice", "p1")
	require.NoError(t, err)

	// nobody is eligible yet, so the whole lottery share lands in the pot
	funded := findEvent(t, r, models.EventLotteryFunded)
	requireAmount(t, models.MustParseAmount("2.5"), funded.Amount)
	requireBalance(t, l, "PULSE", models.AccountLotteryCustody, models.MustParseAmount("2.5"))
	requireBalance(t, l, "PULSE", models.AccountEscrowCustody, models.Tokens(5))

	user, err := l.Burns.UserBurnedTotal(ctx, "alice")
	require.NoError(t, err)
	requireAmount(t, models.Tokens(5), user)

	totals, err := l.Burns.Totals(ctx, "alice", "bob")
	require.NoError(t, err)
	requireAmount(t, models.Tokens(5), totals.TotalBurned)
	requireAmount(t, models.Tokens(5), totals.PerDepositorBurned["alice"])
	requireAmount(t, models.Zero(), totals.PerDepositorBurned["bob"])

	state, err := l.Escrow.State(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, models.EscrowBurned, state)
}

func TestEscrowService_BurnTotalsAccumulate(t *testing.T) {
	l, _ := newLedger(t)
	fund(t, l, "PULSE", "alice", models.Tokens(100))
	fund(t, l, "PULSE", "bob", models.Tokens(100))

	deposits := []struct {
		depositor string
		poolId    string
		amount    models.Amount
	}{
		{"alice", "a1", models.Tokens(10)},
		{"alice", "a2", models.NewAmount(3)},
		{"bob", "b1", models.Tokens(40)},
	}

	want := models.Zero()
	for _, d := range deposits {
		_, err := l.Escrow.Deposit(ctx, d.depositor, d.poolId, d.amount, poolLength)
		require.NoError(t, err)
		_, err = l.Escrow.Burn(ctx, d.depositor, d.poolId)
		require.NoError(t, err)

		var addErr error
		want, addErr = want.Add(d.amount.Half())
		require.NoError(t, addErr)

		total, err := l.Burns.TotalBurned(ctx)
		require.NoError(t, err)
		requireAmount(t, want, total)
	}

	alice, err := l.Burns.UserBurnedTotal(ctx, "alice")
	require.NoError(t, err)
	requireAmount(t, models.MustParseAmount("5.000000000000000001"), alice)
}

func TestEscrowService_BurnWithoutPoolCannotCreate(t *testing.T) {
	l, _ := newLedger(t)
	fund(t, l, "PULSE", "alice", models.Tokens(11))
	fund(t, l, rewardToken, "alice", models.Tokens(1000))

	_, err := l.Escrow.Deposit(ctx, "alice", "p2", models.Tokens(10), poolLength)
	require.NoError(t, err)

	_, err = l.Pools.CreatePool(ctx, "alice", poolRequest("p2"))
	require.ErrorIs(t, err, common.ErrEscrowNotReady)

	_, err = l.Pools.CreatePool(ctx, "alice", poolRequest("unknown"))
	require.ErrorIs(t, err, common.ErrEscrowNotReady)
}

func TestEscrowService_SafetyRefund(t *testing.T) {
	l, clock := newLedger(t)
	fund(t, l, "PULSE", "alice", models.Tokens(10))

	_, err := l.Escrow.Deposit(ctx, "alice", "p3", models.Tokens(10), poolLength)
	require.NoError(t, err)

	_, err = l.Escrow.SafetyRefund(ctx, "alice", "p3")
	require.ErrorIs(t, err, common.ErrEscrowNotReady)

	_, err = l.Escrow.Burn(ctx, "alice", "p3")
	require.NoError(t, err)

	_, err = l.Escrow.SafetyRefund(ctx, "alice", "p3")
	require.ErrorIs(t, err, common.ErrGracePeriodActive)

	ok, err := l.Escrow.CanSafetyRefund(ctx, "p3")
	require.NoError(t, err)
	require.False(t, ok)

	clock.Advance(day + time.Hour)

	ok, err = l.Escrow.CanSafetyRefund(ctx, "p3")
	require.NoError(t, err)
	require.True(t, ok)

	state, err := l.Escrow.State(ctx, "p3")
	require.NoError(t, err)
	require.Equal(t, models.EscrowAbandoned, state)

	abandoned, err := l.Escrow.ListAbandoned(ctx)
	require.NoError(t, err)
	require.Len(t, abandoned, 1)
	require.Equal(t, "p3", abandoned[0].PoolId)

	r, err := l.Escrow.SafetyRefund(ctx, "keeper", "p3")
	require.NoError(t, err)
	require.Equal(t, []string{models.EventSafetyRefunded}, eventTypes(r))
	requireBalance(t, l, "PULSE", "alice", models.Tokens(5))

	_, err = l.Escrow.SafetyRefund(ctx, "alice", "p3")
	require.ErrorIs(t, err, common.ErrAlreadyRefunded)

	state, err = l.Escrow.State(ctx, "p3")
	require.NoError(t, err)
	require.Equal(t, models.EscrowSafetyRefunded, state)

	abandoned, err = l.Escrow.ListAbandoned(ctx)
	require.NoError(t, err)
	require.Empty(t, abandoned)

	ok, err = l.Escrow.CanSafetyRefund(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEscrowService_SafetyRefundAfterPoolCreated(t *testing.T) {
	l, clock := newLedger(t)
	openPool(t, l, "alice", "p1", nil)

	clock.Advance(2 * day)
	_, err := l.Escrow.SafetyRefund(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrPoolExists)

	abandoned, err := l.Escrow.ListAbandoned(ctx)
	require.NoError(t, err)
	require.Empty(t, abandoned)
}

func TestEscrowService_CancelDeposit(t *testing.T) {
	l, _ := newLedger(t)
	fund(t, l, "PULSE", "alice", models.Tokens(10))

	_, err := l.Escrow.Deposit(ctx, "alice", "p1", models.Tokens(10), poolLength)
	require.NoError(t, err)

	_, err = l.Escrow.CancelDeposit(ctx, "bob", "p1")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = l.Escrow.CancelDeposit(ctx, "alice", "p1")
	require.NoError(t, err)
	requireBalance(t, l, "PULSE", "alice", models.Tokens(10))

	state, err := l.Escrow.State(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, models.EscrowCancelled, state)

	_, err = l.Escrow.CancelDeposit(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrAlreadyRefunded)
	_, err = l.Escrow.Burn(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrAlreadyRefunded)

	// a cancelled pool id can be deposited again
	_, err = l.Escrow.Deposit(ctx, "alice", "p1", models.Tokens(10), poolLength)
	require.NoError(t, err)
	_, err = l.Escrow.Burn(ctx, "alice", "p1")
	require.NoError(t, err)

	_, err = l.Escrow.CancelDeposit(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrAlreadyBurned)
}

func TestEscrowService_DepositAfterPoolCreated(t *testing.T) {
	l, clock := newLedger(t)
	openPool(t, l, "alice", "p1", nil)

	clock.Advance(poolLength)
	_, err := l.Pools.CompletePool(ctx, "alice", "p1")
	require.NoError(t, err)
	_, err = l.Escrow.Refund(ctx, "alice", "p1")
	require.NoError(t, err)

	fund(t, l, "PULSE", "bob", models.Tokens(10))
	_, err = l.Escrow.Deposit(ctx, "bob", "p1", models.Tokens(10), poolLength)
	require.ErrorIs(t, err, common.ErrDuplicatePool)
}
