package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/models"
)

type CreatePoolRequest struct {
	PoolId            string
	NftCollection     string
	RewardToken       string
	TotalRewardAmount models.Amount
	// Duration must match the escrow's; zero takes the escrow's.
	Duration          time.Duration
	MinimumNftBalance int64
	MaxParticipants   int64
	Visibility        models.Visibility
	CreationFee       models.Amount
}

func (r *CreatePoolRequest) validate() error {
	if err := checkId("pool id", r.PoolId); err != nil {
		return err
	}
	if err := checkId("nft collection", r.NftCollection); err != nil {
		return err
	}
	if err := checkId("reward token", r.RewardToken); err != nil {
		return err
	}
	if r.TotalRewardAmount.IsZero() {
		return common.Invalid("reward must be greater than zero")
	}
	if r.Duration < 0 {
		return common.Invalid("duration must not be negative")
	}
	if r.MinimumNftBalance < 0 {
		return common.Invalid("minimum nft balance must not be negative")
	}
	if r.MaxParticipants < 1 {
		return common.Invalid("max participants must be greater than zero")
	}
	if r.Visibility == "" {
		r.Visibility = models.VisibilityPublic
	}
	if !r.Visibility.Valid() {
		return common.Invalid("unknown visibility %q", r.Visibility)
	}
	return nil
}

type PoolService struct {
	exec    *Executor
	params  Params
	escrow  *EscrowService
	lottery *LotteryService
}

func NewPoolService(exec *Executor, params Params, escrow *EscrowService, lottery *LotteryService) *PoolService {
	return &PoolService{
		exec:    exec,
		params:  params,
		escrow:  escrow,
		lottery: lottery,
	}
}

// CreatePool opens the pool of a burned escrow. The creator pays the
// creation fee and funds the reward reserve in the same transaction.
func (s *PoolService) CreatePool(ctx context.Context, creator string, req CreatePoolRequest) (*models.Receipt, error) {
	if err := checkAccount(creator); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.CreationFee.Cmp(s.params.MinCreationFee) < 0 {
		return nil, common.Invalid("creation fee must be at least %s", s.params.MinCreationFee.Decimal())
	}

	return s.exec.run(ctx, models.OP_CREATE_POOL, req.PoolId, creator, func(tx Tx, rec *recorder) error {
		exists, err := poolExists(ctx, tx, req.PoolId)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", common.ErrDuplicatePool, req.PoolId)
		}

		e, err := tx.GetEscrow(ctx, req.PoolId)
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: no deposit for %s", common.ErrEscrowNotReady, req.PoolId)
		}
		if err != nil {
			return err
		}
		switch {
		case e.Refunded:
			return fmt.Errorf("%w: deposit for %s was refunded", common.ErrEscrowNotReady, req.PoolId)
		case !e.Burned:
			return fmt.Errorf("%w: deposit for %s is not burned", common.ErrEscrowNotReady, req.PoolId)
		case e.PoolCompleted:
			return fmt.Errorf("%w: deposit for %s is already completed", common.ErrEscrowNotReady, req.PoolId)
		case e.Depositor != creator:
			return fmt.Errorf("%w: only the depositor can create the pool", common.ErrUnauthorized)
		}

		duration := int64(req.Duration / time.Second)
		if duration == 0 {
			duration = e.PoolDuration
		}
		if duration != e.PoolDuration {
			return common.Invalid("duration %ds does not match the deposit's %ds", duration, e.PoolDuration)
		}

		pool := &models.Pool{
			PoolId:            req.PoolId,
			Creator:           creator,
			NftCollection:     req.NftCollection,
			RewardToken:       req.RewardToken,
			TotalRewardAmount: req.TotalRewardAmount,
			Duration:          duration,
			StartTime:         rec.now,
			EndTime:           rec.now + duration,
			ParticipantCount:  0,
			IsActive:          true,
			IsCompleted:       false,
			MinimumNftBalance: req.MinimumNftBalance,
			MaxParticipants:   req.MaxParticipants,
			Visibility:        req.Visibility,
			CreationFee:       req.CreationFee,
		}
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}

		if err := transfer(ctx, tx, s.params.DepositToken, creator, models.AccountFeeCustody, req.CreationFee); err != nil {
			return err
		}
		if err := transfer(ctx, tx, req.RewardToken, creator, models.ReserveAccount(req.PoolId), req.TotalRewardAmount); err != nil {
			return err
		}

		rec.emit(models.EventPoolCreated, req.PoolId, creator, req.TotalRewardAmount, map[string]string{
			"nft_collection": req.NftCollection,
			"reward_token":   req.RewardToken,
			"end_time":       strconv.FormatInt(pool.EndTime, 10),
			"visibility":     string(req.Visibility),
		})
		return nil
	})
}

// JoinPool adds account with its current NFT balance as reward weight.
func (s *PoolService) JoinPool(ctx context.Context, account, poolId string) (*models.Receipt, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}

	return s.exec.run(ctx, models.OP_JOIN_POOL, poolId, account, func(tx Tx, rec *recorder) error {
		pool, err := tx.GetPool(ctx, poolId)
		if err != nil {
			return err
		}
		if !pool.IsActive || rec.now >= pool.EndTime {
			return fmt.Errorf("%w: %s", common.ErrPoolInactive, poolId)
		}

		_, err = tx.GetParticipant(ctx, poolId, account)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", common.ErrAlreadyJoined, poolId)
		case !errors.Is(err, common.ErrNotFound):
			return err
		}

		if pool.ParticipantCount >= pool.MaxParticipants {
			return fmt.Errorf("%w: %d of %d", common.ErrPoolFull, pool.ParticipantCount, pool.MaxParticipants)
		}

		switch pool.Visibility {
		case models.VisibilityWhitelist:
			listed, err := tx.IsWhitelisted(ctx, poolId, account)
			if err != nil {
				return err
			}
			if !listed {
				return fmt.Errorf("%w: %s", common.ErrNotWhitelisted, account)
			}
		case models.VisibilityPremium:
			tier, err := tx.GetBalance(ctx, s.params.PremiumToken, account)
			if err != nil {
				return err
			}
			if tier.Cmp(s.params.PremiumMinBalance) < 0 {
				return fmt.Errorf("%w: holds %s %s", common.ErrPremiumTierRequired, tier.Decimal(), s.params.PremiumToken)
			}
		}

		weight, err := nftBalance(ctx, tx, pool.NftCollection, account)
		if err != nil {
			return err
		}
		if weight < max(pool.MinimumNftBalance, 1) {
			return fmt.Errorf("%w: holds %d, needs %d", common.ErrInsufficientNFTBalance, weight, max(pool.MinimumNftBalance, 1))
		}

		if err := tx.SaveParticipant(ctx, &models.Participant{
			PoolId:           poolId,
			Account:          account,
			NftBalanceAtJoin: weight,
			RewardsClaimed:   models.Zero(),
			JoinTime:         rec.now,
			IsActive:         true,
		}); err != nil {
			return err
		}

		pool.ParticipantCount++
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}

		rec.emit(models.EventPoolJoined, poolId, account, models.Zero(), map[string]string{
			"weight": strconv.FormatInt(weight, 10),
		})
		return nil
	})
}

// nftBalance reads the holding of collection as a count.
func nftBalance(ctx context.Context, tx Tx, collection, account string) (int64, error) {
	b, err := tx.GetBalance(ctx, collection, account)
	if err != nil {
		return 0, err
	}
	n := b.Big()
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: nft balance %s", common.ErrOverflow, n)
	}
	return n.Int64(), nil
}

// AddToWhitelist lists accounts for poolId. Already listed accounts are
// skipped.
func (s *PoolService) AddToWhitelist(ctx context.Context, caller, poolId string, accounts []string) (*models.Receipt, error) {
	if len(accounts) == 0 {
		return nil, common.Invalid("accounts must not be empty")
	}
	for _, a := range accounts {
		if err := checkAccount(a); err != nil {
			return nil, err
		}
	}

	return s.exec.run(ctx, models.OP_ADD_TO_WHITELIST, poolId, caller, func(tx Tx, rec *recorder) error {
		pool, err := tx.GetPool(ctx, poolId)
		if err != nil {
			return err
		}
		if pool.Creator != caller {
			return fmt.Errorf("%w: only the creator can edit the whitelist", common.ErrUnauthorized)
		}

		for _, a := range accounts {
			added, err := tx.AddToWhitelist(ctx, poolId, a)
			if err != nil {
				return err
			}
			if added {
				rec.emit(models.EventWhitelisted, poolId, a, models.Zero(), nil)
			}
		}
		return nil
	})
}

// CompletePool closes an ended pool, unlocks the escrow refund, makes the
// creator and every participant eligible for the lottery and moves the
// creation fee into the pot. Completing a completed pool succeeds without
// changes.
func (s *PoolService) CompletePool(ctx context.Context, caller, poolId string) (*models.Receipt, error) {
	return s.exec.run(ctx, models.OP_COMPLETE_POOL, poolId, caller, func(tx Tx, rec *recorder) error {
		pool, err := tx.GetPool(ctx, poolId)
		if err != nil {
			return err
		}
		if pool.IsCompleted {
			return nil
		}
		if rec.now < pool.EndTime {
			return fmt.Errorf("%w: ends at %d", common.ErrNotYetEnded, pool.EndTime)
		}

		pool.IsActive = false
		pool.IsCompleted = true
		pool.CompletedAt = rec.now
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		if err := s.escrow.completeTx(ctx, tx, rec, poolId); err != nil {
			return err
		}

		participants, err := tx.ListParticipants(ctx, poolId)
		if err != nil {
			return err
		}
		if err := s.lottery.markEligibleTx(ctx, tx, rec, poolId, pool.Creator); err != nil {
			return err
		}
		for _, p := range participants {
			if !p.IsActive {
				continue
			}
			if err := s.lottery.markEligibleTx(ctx, tx, rec, poolId, p.Account); err != nil {
				return err
			}
		}
		if err := s.lottery.addToPotTx(ctx, tx, rec, poolId, models.AccountFeeCustody, pool.CreationFee); err != nil {
			return err
		}

		rec.emit(models.EventPoolCompleted, poolId, pool.Creator, models.Zero(), map[string]string{
			"participants": strconv.Itoa(len(participants)),
		})
		return nil
	})
}

// CompleteEndedPools completes every active pool past its end time and
// returns how many were completed.
func (s *PoolService) CompleteEndedPools(ctx context.Context, caller string) (int, error) {
	pools, err := s.ListPools(ctx, PoolFilter{ActiveOnly: true, EndedBefore: s.exec.Now()})
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, p := range pools {
		if _, err := s.CompletePool(ctx, caller, p.PoolId); err != nil {
			log.WithField("pool_id", p.PoolId).Error("Error while completing pool: ", err)
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *PoolService) GetPool(ctx context.Context, poolId string) (*models.Pool, error) {
	var pool *models.Pool
	err := s.exec.view(ctx, func(tx Tx) error {
		p, err := tx.GetPool(ctx, poolId)
		if err != nil {
			return err
		}
		if p.TotalWeight, err = totalWeight(ctx, tx, poolId); err != nil {
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}

func (s *PoolService) ListPools(ctx context.Context, filter PoolFilter) ([]models.Pool, error) {
	var pools []models.Pool
	err := s.exec.view(ctx, func(tx Tx) error {
		var err error
		pools, err = tx.ListPools(ctx, filter)
		return err
	})
	return pools, err
}

func (s *PoolService) GetParticipant(ctx context.Context, poolId, account string) (*models.Participant, error) {
	var p *models.Participant
	err := s.exec.view(ctx, func(tx Tx) error {
		var err error
		p, err = tx.GetParticipant(ctx, poolId, account)
		return err
	})
	return p, err
}

func (s *PoolService) ListParticipants(ctx context.Context, poolId string) ([]models.Participant, error) {
	var list []models.Participant
	err := s.exec.view(ctx, func(tx Tx) error {
		if _, err := tx.GetPool(ctx, poolId); err != nil {
			return err
		}
		var err error
		list, err = tx.ListParticipants(ctx, poolId)
		return err
	})
	return list, err
}

// CanCompletePool reports whether CompletePool would change the pool now.
// Unknown pool ids report false.
func (s *PoolService) CanCompletePool(ctx context.Context, poolId string) (bool, error) {
	var ok bool
	err := s.exec.view(ctx, func(tx Tx) error {
		pool, err := tx.GetPool(ctx, poolId)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = !pool.IsCompleted && s.exec.Now() >= pool.EndTime
		return nil
	})
	return ok, err
}

// totalWeight sums the join snapshots of the pool's participants.
func totalWeight(ctx context.Context, tx Tx, poolId string) (int64, error) {
	participants, err := tx.ListParticipants(ctx, poolId)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range participants {
		if !p.IsActive {
			continue
		}
		if total > math.MaxInt64-p.NftBalanceAtJoin {
			return 0, fmt.Errorf("%w: total nft weight", common.ErrOverflow)
		}
		total += p.NftBalanceAtJoin
	}
	return total, nil
}
