package boltstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"yieldpool/internal/common"
	"yieldpool/internal/models"
	"yieldpool/internal/services"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_UpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	boom := errors.New("boom")

	err := st.Update(ctx, func(tx services.Tx) error {
		require.NoError(t, tx.SetBalance(ctx, "PULSE", "alice", models.Tokens(3)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = st.View(ctx, func(tx services.Tx) error {
		b, err := tx.GetBalance(ctx, "PULSE", "alice")
		require.NoError(t, err)
		require.True(t, b.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	st, err := Open(path)
	require.NoError(t, err)
	err = st.Update(ctx, func(tx services.Tx) error {
		return tx.SavePool(ctx, &models.Pool{PoolId: "p1", Creator: "alice", TotalRewardAmount: models.Tokens(9), TotalWeight: 4})
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	err = st.View(ctx, func(tx services.Tx) error {
		p, err := tx.GetPool(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, "alice", p.Creator)
		require.Equal(t, models.Tokens(9).String(), p.TotalRewardAmount.String())
		require.Zero(t, p.TotalWeight)

		_, err = tx.GetPool(ctx, "p2")
		require.ErrorIs(t, err, common.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ListPoolsFilter(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	pools := []models.Pool{
		{PoolId: "a", Creator: "alice", EndTime: 100, IsActive: true},
		{PoolId: "b", Creator: "bob", EndTime: 200, IsActive: true},
		{PoolId: "c", Creator: "alice", EndTime: 50, IsActive: false, IsCompleted: true},
	}
	err := st.Update(ctx, func(tx services.Tx) error {
		for i := range pools {
			if err := tx.SavePool(ctx, &pools[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter services.PoolFilter
		want   []string
	}{
		{"all", services.PoolFilter{}, []string{"a", "b", "c"}},
		{"active", services.PoolFilter{ActiveOnly: true}, []string{"a", "b"}},
		{"ended", services.PoolFilter{ActiveOnly: true, EndedBefore: 150}, []string{"a"}},
		{"creator", services.PoolFilter{Creator: "alice"}, []string{"a", "c"}},
		{"page", services.PoolFilter{Offset: 1, Limit: 1}, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.View(ctx, func(tx services.Tx) error {
				list, err := tx.ListPools(ctx, tt.filter)
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(list))
				for _, p := range list {
					ids = append(ids, p.PoolId)
				}
				require.Equal(t, tt.want, ids)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestStore_ParticipantsArePerPool(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	err := st.Update(ctx, func(tx services.Tx) error {
		for _, p := range []models.Participant{
			{PoolId: "p", Account: "alice", NftBalanceAtJoin: 1},
			{PoolId: "p", Account: "bob", NftBalanceAtJoin: 2},
			{PoolId: "p2", Account: "carol", NftBalanceAtJoin: 3},
		} {
			if err := tx.SaveParticipant(ctx, &p); err != nil {
				return err
			}
		}
		added, err := tx.AddToWhitelist(ctx, "p", "alice")
		require.True(t, added)
		return err
	})
	require.NoError(t, err)

	err = st.View(ctx, func(tx services.Tx) error {
		list, err := tx.ListParticipants(ctx, "p")
		require.NoError(t, err)
		require.Len(t, list, 2)

		listed, err := tx.IsWhitelisted(ctx, "p", "alice")
		require.NoError(t, err)
		require.True(t, listed)
		listed, err = tx.IsWhitelisted(ctx, "p2", "alice")
		require.NoError(t, err)
		require.False(t, listed)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_WinnersAndOperations(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	err := st.Update(ctx, func(tx services.Tx) error {
		for i := int64(1); i <= 5; i++ {
			if err := tx.AddWinner(ctx, &models.LotteryWinner{Account: "alice", DrawTime: i}, 3); err != nil {
				return err
			}
		}
		for i, pool := range []string{"p1", "p2", "p1", "p1"} {
			if err := tx.SaveOperation(ctx, &models.Operation{Name: models.OP_BURN, PoolId: pool, CreatedAt: int64(i)}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = st.View(ctx, func(tx services.Tx) error {
		winners, err := tx.ListWinners(ctx, 10)
		require.NoError(t, err)
		require.Len(t, winners, 3)
		require.Equal(t, int64(5), winners[0].DrawTime)
		require.Equal(t, int64(3), winners[2].DrawTime)

		ops, err := tx.ListOperations(ctx, "p1", 1, 10)
		require.NoError(t, err)
		require.Len(t, ops, 2)
		require.Equal(t, int64(2), ops[0].CreatedAt)
		require.Equal(t, int64(0), ops[1].CreatedAt)

		all, err := tx.ListOperations(ctx, "", 0, 2)
		require.NoError(t, err)
		require.Len(t, all, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestPairKey(t *testing.T) {
	require.NotEqual(t, pairKey("ab", "c"), pairKey("a", "bc"))
	require.NotEqual(t, pairKey("a\x00b", "c"), pairKey("a", "b\x00c"))
	require.NotEqual(t, pairKey("a", ""), pairKey("", "a"))
}

func TestStore_SeparatorInIdsDoesNotLeakAcrossPools(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	err := st.Update(ctx, func(tx services.Tx) error {
		for _, p := range []models.Participant{
			{PoolId: "a", Account: "alice", NftBalanceAtJoin: 1},
			{PoolId: "a\x00b", Account: "c", NftBalanceAtJoin: 100},
			{PoolId: "a:b", Account: "c", NftBalanceAtJoin: 7},
		} {
			if err := tx.SaveParticipant(ctx, &p); err != nil {
				return err
			}
		}
		if _, err := tx.AddToWhitelist(ctx, "a\x00b", "c"); err != nil {
			return err
		}
		return tx.SetBalance(ctx, "T\x00a", "b", models.Tokens(5))
	})
	require.NoError(t, err)

	err = st.View(ctx, func(tx services.Tx) error {
		list, err := tx.ListParticipants(ctx, "a")
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "alice", list[0].Account)

		_, err = tx.GetParticipant(ctx, "a", "b\x00c")
		require.ErrorIs(t, err, common.ErrNotFound)

		p, err := tx.GetParticipant(ctx, "a\x00b", "c")
		require.NoError(t, err)
		require.Equal(t, int64(100), p.NftBalanceAtJoin)

		listed, err := tx.IsWhitelisted(ctx, "a", "b\x00c")
		require.NoError(t, err)
		require.False(t, listed)

		bal, err := tx.GetBalance(ctx, "T", "a\x00b")
		require.NoError(t, err)
		require.True(t, bal.IsZero())
		return nil
	})
	require.NoError(t, err)
}
