package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"yieldpool/internal/common"
	"yieldpool/internal/models"
)

type BalanceService struct {
	exec *Executor
}

func NewBalanceService(exec *Executor) *BalanceService {
	return &BalanceService{exec: exec}
}

// Credit mints amount of token to account. It is the funding path used by
// the admin surface and by balance sync from the chain indexer.
func (s *BalanceService) Credit(ctx context.Context, caller, token, account string, amount models.Amount) (*models.Receipt, error) {
	if err := checkId("token", token); err != nil {
		return nil, err
	}
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, common.Invalid("amount must be greater than zero")
	}

	return s.exec.run(ctx, models.OP_CREDIT, "", caller, func(tx Tx, rec *recorder) error {
		if err := credit(ctx, tx, token, account, amount); err != nil {
			return err
		}
		rec.emit(models.EventCredited, "", account, amount, map[string]string{"token": token})
		return nil
	})
}

func (s *BalanceService) BalanceOf(ctx context.Context, token, account string) (models.Amount, error) {
	var balance models.Amount
	err := s.exec.view(ctx, func(tx Tx) error {
		b, err := tx.GetBalance(ctx, token, account)
		balance = b
		return err
	})
	return balance, err
}

// maxIdLength bounds account, pool, token and collection ids.
const maxIdLength = 256

// checkId rejects empty, oversized and control-character ids. Stores build
// composite keys from ids, so a NUL or newline must never reach them.
func checkId(kind, id string) error {
	if id == "" {
		return common.Invalid("%s must be set", kind)
	}
	if len(id) > maxIdLength {
		return common.Invalid("%s is longer than %d bytes", kind, maxIdLength)
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return common.Invalid("%s %q contains control characters", kind, id)
	}
	return nil
}

// checkAccount rejects invalid ids and the ledger's own custody accounts,
// which no caller may act as.
func checkAccount(account string) error {
	if err := checkId("account", account); err != nil {
		return err
	}
	if models.IsCustodyAccount(account) {
		return fmt.Errorf("%w: %s is a custody account", common.ErrUnauthorized, account)
	}
	return nil
}

func credit(ctx context.Context, tx Tx, token, account string, amount models.Amount) error {
	if amount.IsZero() {
		return nil
	}
	balance, err := tx.GetBalance(ctx, token, account)
	if err != nil {
		return err
	}
	balance, err = balance.Add(amount)
	if err != nil {
		return err
	}
	return tx.SetBalance(ctx, token, account, balance)
}

func debit(ctx context.Context, tx Tx, token, account string, amount models.Amount) error {
	if amount.IsZero() {
		return nil
	}
	balance, err := tx.GetBalance(ctx, token, account)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", common.ErrInsufficientFunds, account, balance, token, amount)
	}
	balance, err = balance.Sub(amount)
	if err != nil {
		return err
	}
	return tx.SetBalance(ctx, token, account, balance)
}

func transfer(ctx context.Context, tx Tx, token, from, to string, amount models.Amount) error {
	if err := debit(ctx, tx, token, from, amount); err != nil {
		return err
	}
	return credit(ctx, tx, token, to, amount)
}
