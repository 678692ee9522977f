package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/models"
)

// EscrowService owns the per-pool deposits:
//
//	deposited -> burned -> pool created -> pool completed -> refunded
//	                    \-> abandoned (grace elapsed) -> safety refunded
//	deposited -> cancelled
//
// Refunded, safety refunded and cancelled are terminal.
type EscrowService struct {
	exec    *Executor
	params  Params
	burns   *BurnService
	lottery *LotteryService
}

func NewEscrowService(exec *Executor, params Params, burns *BurnService, lottery *LotteryService) *EscrowService {
	return &EscrowService{
		exec:    exec,
		params:  params,
		burns:   burns,
		lottery: lottery,
	}
}

// Deposit moves total from the depositor into escrow custody for poolId.
// Half (rounded down) is burned later, the rest is refundable.
func (s *EscrowService) Deposit(
	ctx context.Context,
	depositor, poolId string,
	total models.Amount,
	duration time.Duration,
) (*models.Receipt, error) {
	if err := checkAccount(depositor); err != nil {
		return nil, err
	}
	if err := checkId("pool id", poolId); err != nil {
		return nil, err
	}
	if total.IsZero() {
		return nil, common.Invalid("deposit must be greater than zero")
	}
	seconds := int64(duration / time.Second)
	if seconds < 1 {
		return nil, common.Invalid("pool duration must be at least one second")
	}

	return s.exec.run(ctx, models.OP_DEPOSIT, poolId, depositor, func(tx Tx, rec *recorder) error {
		existing, err := tx.GetEscrow(ctx, poolId)
		switch {
		case err == nil && !existing.Refunded:
			return fmt.Errorf("%w: %s", common.ErrDuplicatePool, poolId)
		case err != nil && !errors.Is(err, common.ErrNotFound):
			return err
		}
		exists, err := poolExists(ctx, tx, poolId)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: pool %s was already created", common.ErrDuplicatePool, poolId)
		}

		burn := total.Half()
		rest, err := total.Sub(burn)
		if err != nil {
			return err
		}

		e := &models.EscrowDeposit{
			PoolId:        poolId,
			Depositor:     depositor,
			TotalAmount:   total,
			BurnAmount:    burn,
			EscrowAmount:  rest,
			DepositTime:   rec.now,
			PoolDuration:  seconds,
			Burned:        false,
			PoolCompleted: false,
			Refunded:      false,
		}
		if err := tx.SaveEscrow(ctx, e); err != nil {
			return err
		}
		if err := transfer(ctx, tx, s.params.DepositToken, depositor, models.AccountEscrowCustody, total); err != nil {
			return err
		}

		rec.emit(models.EventDeposited, poolId, depositor, total, map[string]string{
			"burn_amount":   burn.String(),
			"escrow_amount": rest.String(),
			"duration":      strconv.FormatInt(seconds, 10),
		})
		return nil
	})
}

// Burn destroys the burn half of the deposit. The lottery share of it is
// paid out or added to the pot in the same transaction.
func (s *EscrowService) Burn(ctx context.Context, caller, poolId string) (*models.Receipt, error) {
	ext := s.lottery.outsideEntropy(ctx)

	return s.exec.run(ctx, models.OP_BURN, poolId, caller, func(tx Tx, rec *recorder) error {
		e, err := tx.GetEscrow(ctx, poolId)
		if err != nil {
			return err
		}
		switch {
		case e.Burned:
			return fmt.Errorf("%w: %s", common.ErrAlreadyBurned, poolId)
		case e.Refunded:
			return fmt.Errorf("%w: %s", common.ErrAlreadyRefunded, poolId)
		case e.Depositor != caller:
			return fmt.Errorf("%w: only the depositor can burn", common.ErrUnauthorized)
		}

		e.Burned = true
		e.BurnTime = rec.now
		if err := tx.SaveEscrow(ctx, e); err != nil {
			return err
		}
		if err := s.burns.recordTx(ctx, tx, e.Depositor, e.BurnAmount); err != nil {
			return err
		}
		if err := debit(ctx, tx, s.params.DepositToken, models.AccountEscrowCustody, e.BurnAmount); err != nil {
			return err
		}

		share, err := s.lottery.fundFromBurnTx(ctx, tx, rec, poolId, e.BurnAmount, ext)
		if err != nil {
			return err
		}
		destroyed, err := e.BurnAmount.Sub(share)
		if err != nil {
			return err
		}

		rec.emit(models.EventBurned, poolId, e.Depositor, e.BurnAmount, map[string]string{
			"destroyed":     destroyed.String(),
			"lottery_share": share.String(),
		})
		return nil
	})
}

// CancelDeposit returns an unburned deposit in full. The record becomes
// terminal and the pool id can be deposited again.
func (s *EscrowService) CancelDeposit(ctx context.Context, caller, poolId string) (*models.Receipt, error) {
	return s.exec.run(ctx, models.OP_CANCEL_DEPOSIT, poolId, caller, func(tx Tx, rec *recorder) error {
		e, err := tx.GetEscrow(ctx, poolId)
		if err != nil {
			return err
		}
		switch {
		case e.Refunded:
			return fmt.Errorf("%w: %s", common.ErrAlreadyRefunded, poolId)
		case e.Burned:
			return fmt.Errorf("%w: %s", common.ErrAlreadyBurned, poolId)
		case e.Depositor != caller:
			return fmt.Errorf("%w: only the depositor can cancel", common.ErrUnauthorized)
		}

		if err := s.closeTx(ctx, tx, rec, e, models.RefundKindCancel, e.TotalAmount); err != nil {
			return err
		}
		rec.emit(models.EventDepositCancelled, poolId, e.Depositor, e.TotalAmount, nil)
		return nil
	})
}

// Refund pays the escrowed half back to the depositor after the pool
// completed. Anyone may trigger it; the funds always go to the depositor.
func (s *EscrowService) Refund(ctx context.Context, caller, poolId string) (*models.Receipt, error) {
	return s.exec.run(ctx, models.OP_REFUND, poolId, caller, func(tx Tx, rec *recorder) error {
		e, err := tx.GetEscrow(ctx, poolId)
		if err != nil {
			return err
		}
		switch {
		case e.Refunded:
			return fmt.Errorf("%w: %s", common.ErrAlreadyRefunded, poolId)
		case !e.PoolCompleted:
			return fmt.Errorf("%w: %s", common.ErrPoolNotCompleted, poolId)
		}

		if err := s.closeTx(ctx, tx, rec, e, models.RefundKindRefund, e.EscrowAmount); err != nil {
			return err
		}
		rec.emit(models.EventRefunded, poolId, e.Depositor, e.EscrowAmount, nil)
		return nil
	})
}

// SafetyRefund releases the escrow of a burned deposit whose pool was never
// created, once the grace period has passed.
func (s *EscrowService) SafetyRefund(ctx context.Context, caller, poolId string) (*models.Receipt, error) {
	return s.exec.run(ctx, models.OP_SAFETY_REFUND, poolId, caller, func(tx Tx, rec *recorder) error {
		e, err := tx.GetEscrow(ctx, poolId)
		if err != nil {
			return err
		}
		if err := s.checkSafetyRefundTx(ctx, tx, e, rec.now); err != nil {
			return err
		}

		if err := s.closeTx(ctx, tx, rec, e, models.RefundKindSafety, e.EscrowAmount); err != nil {
			return err
		}
		rec.emit(models.EventSafetyRefunded, poolId, e.Depositor, e.EscrowAmount, nil)
		return nil
	})
}

func (s *EscrowService) checkSafetyRefundTx(ctx context.Context, tx Tx, e *models.EscrowDeposit, now int64) error {
	switch {
	case e.Refunded:
		return fmt.Errorf("%w: %s", common.ErrAlreadyRefunded, e.PoolId)
	case !e.Burned:
		return fmt.Errorf("%w: %s is not burned", common.ErrEscrowNotReady, e.PoolId)
	}
	exists, err := poolExists(ctx, tx, e.PoolId)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", common.ErrPoolExists, e.PoolId)
	}
	if now < e.DepositTime+int64(s.params.SafetyGracePeriod.Seconds()) {
		return fmt.Errorf("%w: %s", common.ErrGracePeriodActive, e.PoolId)
	}
	return nil
}

// closeTx marks e terminal and then pays amount out of custody.
func (s *EscrowService) closeTx(
	ctx context.Context,
	tx Tx,
	rec *recorder,
	e *models.EscrowDeposit,
	kind string,
	amount models.Amount,
) error {
	e.Refunded = true
	e.RefundKind = kind
	e.RefundTime = rec.now
	if err := tx.SaveEscrow(ctx, e); err != nil {
		return err
	}
	return transfer(ctx, tx, s.params.DepositToken, models.AccountEscrowCustody, e.Depositor, amount)
}

// completeTx marks the escrow of a completed pool refundable. Repeated calls
// are no-ops.
func (s *EscrowService) completeTx(ctx context.Context, tx Tx, rec *recorder, poolId string) error {
	e, err := tx.GetEscrow(ctx, poolId)
	if err != nil {
		return err
	}
	if e.PoolCompleted {
		return nil
	}
	e.PoolCompleted = true
	if err := tx.SaveEscrow(ctx, e); err != nil {
		return err
	}
	rec.emit(models.EventEscrowCompleted, poolId, e.Depositor, e.EscrowAmount, nil)
	return nil
}

func (s *EscrowService) GetPoolEscrow(ctx context.Context, poolId string) (*models.EscrowDeposit, error) {
	var e *models.EscrowDeposit
	err := s.exec.view(ctx, func(tx Tx) error {
		var err error
		e, err = tx.GetEscrow(ctx, poolId)
		return err
	})
	return e, err
}

// State returns the lifecycle stage of the escrow for poolId.
func (s *EscrowService) State(ctx context.Context, poolId string) (models.EscrowState, error) {
	_, state, err := s.GetPoolEscrowState(ctx, poolId)
	return state, err
}

// GetPoolEscrowState reads the escrow and its lifecycle stage in one view.
func (s *EscrowService) GetPoolEscrowState(ctx context.Context, poolId string) (*models.EscrowDeposit, models.EscrowState, error) {
	var (
		e     *models.EscrowDeposit
		state models.EscrowState
	)
	err := s.exec.view(ctx, func(tx Tx) error {
		var err error
		e, err = tx.GetEscrow(ctx, poolId)
		if err != nil {
			return err
		}
		exists, err := poolExists(ctx, tx, poolId)
		if err != nil {
			return err
		}
		state = e.State(exists, s.exec.Now(), int64(s.params.SafetyGracePeriod.Seconds()))
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return e, state, nil
}

// CanSafetyRefund reports whether SafetyRefund would succeed now. Unknown
// pool ids report false.
func (s *EscrowService) CanSafetyRefund(ctx context.Context, poolId string) (bool, error) {
	var ok bool
	err := s.exec.view(ctx, func(tx Tx) error {
		e, err := tx.GetEscrow(ctx, poolId)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		err = s.checkSafetyRefundTx(ctx, tx, e, s.exec.Now())
		switch {
		case err == nil:
			ok = true
		case common.Kind(err) == "Internal" || errors.Is(err, common.ErrStoreUnavailable):
			return err
		}
		return nil
	})
	return ok, err
}

// ListAbandoned returns burned escrows without a pool whose grace period has
// elapsed.
func (s *EscrowService) ListAbandoned(ctx context.Context) ([]models.EscrowDeposit, error) {
	var list []models.EscrowDeposit
	err := s.exec.view(ctx, func(tx Tx) error {
		var err error
		cutoff := s.exec.Now() - int64(s.params.SafetyGracePeriod.Seconds())
		list, err = tx.ListAbandonedEscrows(ctx, cutoff)
		return err
	})
	return list, err
}

func poolExists(ctx context.Context, tx Tx, poolId string) (bool, error) {
	_, err := tx.GetPool(ctx, poolId)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
