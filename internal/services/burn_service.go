package services

import (
	"context"
	"yieldpool/internal/models"
)

// BurnService keeps the global and per-depositor burn totals. Totals only
// grow; they are written by EscrowService.Burn.
type BurnService struct {
	exec *Executor
}

func NewBurnService(exec *Executor) *BurnService {
	return &BurnService{exec: exec}
}

func (s *BurnService) TotalBurned(ctx context.Context) (models.Amount, error) {
	var total models.Amount
	err := s.exec.view(ctx, func(tx Tx) error {
		t, err := tx.GetTotalBurned(ctx)
		total = t
		return err
	})
	return total, err
}

func (s *BurnService) UserBurnedTotal(ctx context.Context, account string) (models.Amount, error) {
	var total models.Amount
	err := s.exec.view(ctx, func(tx Tx) error {
		t, err := tx.GetUserBurned(ctx, account)
		total = t
		return err
	})
	return total, err
}

// Totals returns the global total and, when accounts are given, their
// per-depositor totals.
func (s *BurnService) Totals(ctx context.Context, accounts ...string) (*models.BurnTotals, error) {
	totals := &models.BurnTotals{PerDepositorBurned: make(map[string]models.Amount, len(accounts))}
	err := s.exec.view(ctx, func(tx Tx) error {
		t, err := tx.GetTotalBurned(ctx)
		if err != nil {
			return err
		}
		totals.TotalBurned = t
		for _, a := range accounts {
			b, err := tx.GetUserBurned(ctx, a)
			if err != nil {
				return err
			}
			totals.PerDepositorBurned[a] = b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *BurnService) recordTx(ctx context.Context, tx Tx, depositor string, amount models.Amount) error {
	total, err := tx.GetTotalBurned(ctx)
	if err != nil {
		return err
	}
	if total, err = total.Add(amount); err != nil {
		return err
	}
	if err := tx.SetTotalBurned(ctx, total); err != nil {
		return err
	}

	user, err := tx.GetUserBurned(ctx, depositor)
	if err != nil {
		return err
	}
	if user, err = user.Add(amount); err != nil {
		return err
	}
	return tx.SetUserBurned(ctx, depositor, user)
}
