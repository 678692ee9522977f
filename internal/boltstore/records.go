package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"yieldpool/internal/common"
	"yieldpool/internal/models"
	"yieldpool/internal/services"
)

func (t *boltTx) GetEscrow(_ context.Context, poolId string) (*models.EscrowDeposit, error) {
	var e models.EscrowDeposit
	if err := t.get(bucketEscrows, poolId, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *boltTx) SaveEscrow(_ context.Context, e *models.EscrowDeposit) error {
	return t.put(bucketEscrows, e.PoolId, e)
}

func (t *boltTx) ListAbandonedEscrows(_ context.Context, depositedBefore int64) ([]models.EscrowDeposit, error) {
	var list []models.EscrowDeposit
	err := t.tx.Bucket(bucketEscrows).ForEach(func(k, v []byte) error {
		var e models.EscrowDeposit
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("%w: decode escrow %s: %v", common.ErrStoreUnavailable, k, err)
		}
		if !e.Burned || e.Refunded || e.DepositTime > depositedBefore {
			return nil
		}
		if t.has(bucketPools, e.PoolId) {
			return nil
		}
		list = append(list, e)
		return nil
	})
	return list, err
}

func (t *boltTx) GetPool(_ context.Context, poolId string) (*models.Pool, error) {
	var p models.Pool
	if err := t.get(bucketPools, poolId, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *boltTx) SavePool(_ context.Context, p *models.Pool) error {
	stored := *p
	stored.TotalWeight = 0
	return t.put(bucketPools, p.PoolId, &stored)
}

func (t *boltTx) ListPools(_ context.Context, f services.PoolFilter) ([]models.Pool, error) {
	var pools []models.Pool
	skipped := 0
	err := t.tx.Bucket(bucketPools).ForEach(func(k, v []byte) error {
		if f.Limit > 0 && len(pools) >= f.Limit {
			return nil
		}
		var p models.Pool
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("%w: decode pool %s: %v", common.ErrStoreUnavailable, k, err)
		}
		if f.ActiveOnly && !p.IsActive {
			return nil
		}
		if f.EndedBefore > 0 && p.EndTime > f.EndedBefore {
			return nil
		}
		if f.Creator != "" && p.Creator != f.Creator {
			return nil
		}
		if skipped < f.Offset {
			skipped++
			return nil
		}
		pools = append(pools, p)
		return nil
	})
	return pools, err
}

func (t *boltTx) GetParticipant(_ context.Context, poolId, account string) (*models.Participant, error) {
	var p models.Participant
	if err := t.get(bucketParticipants, pairKey(poolId, account), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *boltTx) SaveParticipant(_ context.Context, p *models.Participant) error {
	return t.put(bucketParticipants, pairKey(p.PoolId, p.Account), p)
}

func (t *boltTx) ListParticipants(_ context.Context, poolId string) ([]models.Participant, error) {
	var list []models.Participant
	prefix := []byte(pairKey(poolId, ""))
	c := t.tx.Bucket(bucketParticipants).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var p models.Participant
		if err := json.Unmarshal(v, &p); err != nil {
			return nil, fmt.Errorf("%w: decode participant %s: %v", common.ErrStoreUnavailable, k, err)
		}
		list = append(list, p)
	}
	return list, nil
}

func (t *boltTx) IsWhitelisted(_ context.Context, poolId, account string) (bool, error) {
	return t.has(bucketWhitelist, pairKey(poolId, account)), nil
}

func (t *boltTx) AddToWhitelist(_ context.Context, poolId, account string) (bool, error) {
	key := pairKey(poolId, account)
	if t.has(bucketWhitelist, key) {
		return false, nil
	}
	return true, t.put(bucketWhitelist, key, true)
}

func (t *boltTx) getAmount(bucket []byte, key string) (models.Amount, error) {
	var a models.Amount
	err := t.get(bucket, key, &a)
	if err != nil && !isNotFound(err) {
		return models.Zero(), err
	}
	return a, nil
}

func (t *boltTx) GetBalance(_ context.Context, token, account string) (models.Amount, error) {
	return t.getAmount(bucketBalances, pairKey(token, account))
}

func (t *boltTx) SetBalance(_ context.Context, token, account string, amount models.Amount) error {
	return t.put(bucketBalances, pairKey(token, account), amount)
}

const totalBurnedKey = "total"

func (t *boltTx) GetTotalBurned(context.Context) (models.Amount, error) {
	return t.getAmount(bucketBurns, totalBurnedKey)
}

func (t *boltTx) SetTotalBurned(_ context.Context, amount models.Amount) error {
	return t.put(bucketBurns, totalBurnedKey, amount)
}

func (t *boltTx) GetUserBurned(_ context.Context, account string) (models.Amount, error) {
	return t.getAmount(bucketBurns, pairKey("user", account))
}

func (t *boltTx) SetUserBurned(_ context.Context, account string, amount models.Amount) error {
	return t.put(bucketBurns, pairKey("user", account), amount)
}

const potKey = "pot"

func (t *boltTx) GetLotteryPot(context.Context) (*models.LotteryPot, error) {
	var pot models.LotteryPot
	if err := t.get(bucketLottery, potKey, &pot); err != nil {
		return nil, err
	}
	pot.EligibleParticipants = nil
	pot.RecentWinners = nil
	return &pot, nil
}

func (t *boltTx) SaveLotteryPot(_ context.Context, pot *models.LotteryPot) error {
	stored := models.LotteryPot{
		CurrentPotAmount: pot.CurrentPotAmount,
		NextDrawTime:     pot.NextDrawTime,
		DrawCount:        pot.DrawCount,
	}
	return t.put(bucketLottery, potKey, &stored)
}

func (t *boltTx) AddEligible(_ context.Context, account string, since int64) (bool, error) {
	if t.has(bucketEligible, account) {
		return false, nil
	}
	return true, t.put(bucketEligible, account, since)
}

func (t *boltTx) ListEligible(context.Context) ([]string, error) {
	var list []string
	err := t.tx.Bucket(bucketEligible).ForEach(func(k, _ []byte) error {
		list = append(list, string(k))
		return nil
	})
	sort.Strings(list)
	return list, err
}

func (t *boltTx) AddWinner(_ context.Context, w *models.LotteryWinner, keep int) error {
	b := t.tx.Bucket(bucketWinners)
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	w.Id = int64(seq)
	if err := t.put(bucketWinners, string(seqKey(seq)), w); err != nil {
		return err
	}

	if keep <= 0 {
		return nil
	}
	var stale [][]byte
	n := 0
	c := b.Cursor()
	for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
		n++
		if n > keep {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}
	}
	return nil
}

func (t *boltTx) ListWinners(_ context.Context, limit int) ([]models.LotteryWinner, error) {
	var list []models.LotteryWinner
	c := t.tx.Bucket(bucketWinners).Cursor()
	for k, v := c.Last(); k != nil && (limit <= 0 || len(list) < limit); k, v = c.Prev() {
		var w models.LotteryWinner
		if err := json.Unmarshal(v, &w); err != nil {
			return nil, fmt.Errorf("%w: decode winner: %v", common.ErrStoreUnavailable, err)
		}
		list = append(list, w)
	}
	return list, nil
}

func (t *boltTx) SaveOperation(_ context.Context, op *models.Operation) error {
	b := t.tx.Bucket(bucketOperations)
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	op.Id = int64(seq)
	return t.put(bucketOperations, string(seqKey(seq)), op)
}

func (t *boltTx) ListOperations(_ context.Context, poolId string, offset, limit int) ([]models.Operation, error) {
	var list []models.Operation
	skipped := 0
	c := t.tx.Bucket(bucketOperations).Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		if limit > 0 && len(list) >= limit {
			break
		}
		var op models.Operation
		if err := json.Unmarshal(v, &op); err != nil {
			return nil, fmt.Errorf("%w: decode operation: %v", common.ErrStoreUnavailable, err)
		}
		if poolId != "" && op.PoolId != poolId {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		list = append(list, op)
	}
	return list, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
