package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"yieldpool/internal/common"
	"yieldpool/internal/models"
)

// RewardService pays pool rewards pro rata to NFT weight and time in pool.
//
// A participant's entitlement at time t is
//
//	total_reward * weight * elapsed / (total_weight * duration)
//
// where elapsed = min(t, end_time) - join_time clamped to [0, duration] and
// total_weight sums the join snapshots of everyone who joined so far. Late
// joiners dilute earlier ones, so pending may drop to zero. Claims are paid
// from the pool reserve until it runs dry.
type RewardService struct {
	exec *Executor
}

func NewRewardService(exec *Executor) *RewardService {
	return &RewardService{exec: exec}
}

func (s *RewardService) PendingRewards(ctx context.Context, poolId, account string) (models.Amount, error) {
	pending := models.Zero()
	err := s.exec.view(ctx, func(tx Tx) error {
		pool, p, err := participantTx(ctx, tx, poolId, account)
		if err != nil {
			return err
		}
		pending, err = pendingTx(ctx, tx, pool, p, s.exec.Now())
		return err
	})
	return pending, err
}

// ClaimRewards pays everything pending to the participant.
func (s *RewardService) ClaimRewards(ctx context.Context, account, poolId string) (*models.Receipt, error) {
	return s.exec.run(ctx, models.OP_CLAIM_REWARDS, poolId, account, func(tx Tx, rec *recorder) error {
		pool, p, err := participantTx(ctx, tx, poolId, account)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return fmt.Errorf("%w: %s", common.ErrNotParticipant, account)
		}

		pending, err := pendingTx(ctx, tx, pool, p, rec.now)
		if err != nil {
			return err
		}
		if pending.IsZero() {
			return fmt.Errorf("%w: %s in %s", common.ErrNothingToClaim, account, poolId)
		}

		if p.RewardsClaimed, err = p.RewardsClaimed.Add(pending); err != nil {
			return err
		}
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}
		if err := transfer(ctx, tx, pool.RewardToken, models.ReserveAccount(poolId), account, pending); err != nil {
			return err
		}

		rec.emit(models.EventRewardsClaimed, poolId, account, pending, map[string]string{"token": pool.RewardToken})
		return nil
	})
}

// ReclaimRewards returns the reserve of a completed pool nobody joined to
// its creator.
func (s *RewardService) ReclaimRewards(ctx context.Context, caller, poolId string) (*models.Receipt, error) {
	return s.exec.run(ctx, models.OP_RECLAIM_REWARDS, poolId, caller, func(tx Tx, rec *recorder) error {
		pool, err := tx.GetPool(ctx, poolId)
		if err != nil {
			return err
		}
		switch {
		case pool.Creator != caller:
			return fmt.Errorf("%w: only the creator can reclaim rewards", common.ErrUnauthorized)
		case !pool.IsCompleted:
			return fmt.Errorf("%w: %s", common.ErrPoolNotCompleted, poolId)
		case pool.ParticipantCount > 0:
			return common.Invalid("pool %s had participants", poolId)
		}

		reserve, err := tx.GetBalance(ctx, pool.RewardToken, models.ReserveAccount(poolId))
		if err != nil {
			return err
		}
		if reserve.IsZero() {
			return fmt.Errorf("%w: reserve of %s is empty", common.ErrNothingToClaim, poolId)
		}
		if err := transfer(ctx, tx, pool.RewardToken, models.ReserveAccount(poolId), pool.Creator, reserve); err != nil {
			return err
		}

		rec.emit(models.EventRewardsReclaimed, poolId, pool.Creator, reserve, map[string]string{"token": pool.RewardToken})
		return nil
	})
}

func participantTx(ctx context.Context, tx Tx, poolId, account string) (*models.Pool, *models.Participant, error) {
	if err := checkAccount(account); err != nil {
		return nil, nil, err
	}
	pool, err := tx.GetPool(ctx, poolId)
	if err != nil {
		return nil, nil, err
	}
	p, err := tx.GetParticipant(ctx, poolId, account)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s in %s", common.ErrNotParticipant, account, poolId)
	}
	if err != nil {
		return nil, nil, err
	}
	return pool, p, nil
}

func pendingTx(ctx context.Context, tx Tx, pool *models.Pool, p *models.Participant, now int64) (models.Amount, error) {
	weight, err := totalWeight(ctx, tx, pool.PoolId)
	if err != nil {
		return models.Zero(), err
	}

	entitlement, err := Entitlement(pool, p, weight, now)
	if err != nil {
		return models.Zero(), err
	}
	if entitlement.Cmp(p.RewardsClaimed) <= 0 {
		return models.Zero(), nil
	}
	pending, err := entitlement.Sub(p.RewardsClaimed)
	if err != nil {
		return models.Zero(), err
	}

	reserve, err := tx.GetBalance(ctx, pool.RewardToken, models.ReserveAccount(pool.PoolId))
	if err != nil {
		return models.Zero(), err
	}
	return models.MinAmount(pending, reserve), nil
}

// Entitlement is the total reward p has earned by now, before claims.
func Entitlement(pool *models.Pool, p *models.Participant, totalWeight, now int64) (models.Amount, error) {
	if totalWeight <= 0 || p.NftBalanceAtJoin <= 0 || pool.Duration <= 0 {
		return models.Zero(), nil
	}

	elapsed := min(now, pool.EndTime) - p.JoinTime
	elapsed = max(0, min(elapsed, pool.Duration))
	if elapsed == 0 {
		return models.Zero(), nil
	}

	num := new(big.Int).Mul(big.NewInt(p.NftBalanceAtJoin), big.NewInt(elapsed))
	den := new(big.Int).Mul(big.NewInt(totalWeight), big.NewInt(pool.Duration))
	return pool.TotalRewardAmount.MulDiv(num, den)
}
