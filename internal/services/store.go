package services

import (
	"context"
	"yieldpool/internal/models"
)

// Store runs ledger transactions. Update commits fn's writes atomically or
// none of them; View is read only.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

type PoolFilter struct {
	ActiveOnly  bool
	EndedBefore int64 // active pools with end_time <= EndedBefore; 0 disables
	Creator     string
	Offset      int
	Limit       int
}

// Tx is the record access available inside one transaction. Lookups of
// missing records return common.ErrNotFound, except balances and burn totals
// which read as zero.
type Tx interface {
	GetEscrow(ctx context.Context, poolId string) (*models.EscrowDeposit, error)
	SaveEscrow(ctx context.Context, e *models.EscrowDeposit) error
	// ListAbandonedEscrows returns burned, unrefunded escrows without a pool
	// deposited at or before depositedBefore.
	ListAbandonedEscrows(ctx context.Context, depositedBefore int64) ([]models.EscrowDeposit, error)

	GetPool(ctx context.Context, poolId string) (*models.Pool, error)
	SavePool(ctx context.Context, p *models.Pool) error
	ListPools(ctx context.Context, f PoolFilter) ([]models.Pool, error)

	GetParticipant(ctx context.Context, poolId, account string) (*models.Participant, error)
	SaveParticipant(ctx context.Context, p *models.Participant) error
	ListParticipants(ctx context.Context, poolId string) ([]models.Participant, error)

	IsWhitelisted(ctx context.Context, poolId, account string) (bool, error)
	AddToWhitelist(ctx context.Context, poolId, account string) (bool, error)

	GetBalance(ctx context.Context, token, account string) (models.Amount, error)
	SetBalance(ctx context.Context, token, account string, amount models.Amount) error

	GetTotalBurned(ctx context.Context) (models.Amount, error)
	SetTotalBurned(ctx context.Context, amount models.Amount) error
	GetUserBurned(ctx context.Context, account string) (models.Amount, error)
	SetUserBurned(ctx context.Context, account string, amount models.Amount) error

	GetLotteryPot(ctx context.Context) (*models.LotteryPot, error)
	SaveLotteryPot(ctx context.Context, pot *models.LotteryPot) error
	// AddEligible records account once and reports whether it was new;
	// since keeps the first time it became eligible.
	AddEligible(ctx context.Context, account string, since int64) (bool, error)
	// ListEligible is sorted by account.
	ListEligible(ctx context.Context) ([]string, error)
	// AddWinner appends to the history and drops all but the newest keep.
	AddWinner(ctx context.Context, w *models.LotteryWinner, keep int) error
	// ListWinners returns newest first.
	ListWinners(ctx context.Context, limit int) ([]models.LotteryWinner, error)

	SaveOperation(ctx context.Context, op *models.Operation) error
	ListOperations(ctx context.Context, poolId string, offset, limit int) ([]models.Operation, error)
}
