package repositories

import (
	"context"
	"errors"
	"yieldpool/internal/common"
	"yieldpool/internal/models"

	"github.com/jmoiron/sqlx"
)

type BalanceRepository struct {
	db *sqlx.Tx
}

func NewBalanceRepository(db *sqlx.Tx) *BalanceRepository {
	return &BalanceRepository{
		db: db,
	}
}

func (r *BalanceRepository) GetBalance(ctx context.Context, token, account string) (models.Amount, error) {
	var amount models.Amount
	query := r.db.Rebind("select amount from balance where token = ? and account = ?")
	err := wrapErr(r.db.GetContext(ctx, &amount, query, token, account), "balance of "+account)
	if errors.Is(err, common.ErrNotFound) {
		return models.Zero(), nil
	}
	return amount, err
}

func (r *BalanceRepository) SetBalance(ctx context.Context, token, account string, amount models.Amount) error {
	_, err := r.db.NamedExecContext(
		ctx,
		`insert into balance(token, account, amount) values (:token, :account, :amount)
on conflict (token, account) do update set amount = excluded.amount`,
		&models.Balance{Token: token, Account: account, Amount: amount},
	)
	return wrapErr(err, "balance of "+account)
}
