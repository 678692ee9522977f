package repositories

import (
	"context"
	"errors"
	"yieldpool/internal/common"
	"yieldpool/internal/models"

	"github.com/jmoiron/sqlx"
)

const totalBurnedScope = "total"

// BurnRepository keeps burn totals keyed by scope: "total" for the global
// sum, "user:<account>" per depositor.
type BurnRepository struct {
	db *sqlx.Tx
}

func NewBurnRepository(db *sqlx.Tx) *BurnRepository {
	return &BurnRepository{
		db: db,
	}
}

func (r *BurnRepository) get(ctx context.Context, scope string) (models.Amount, error) {
	var amount models.Amount
	query := r.db.Rebind("select amount from burn_total where scope = ?")
	err := wrapErr(r.db.GetContext(ctx, &amount, query, scope), "burn total "+scope)
	if errors.Is(err, common.ErrNotFound) {
		return models.Zero(), nil
	}
	return amount, err
}

func (r *BurnRepository) set(ctx context.Context, scope string, amount models.Amount) error {
	query := r.db.Rebind("insert into burn_total(scope, amount) values (?, ?) on conflict (scope) do update set amount = excluded.amount")
	_, err := r.db.ExecContext(ctx, query, scope, amount)
	return wrapErr(err, "burn total "+scope)
}

func (r *BurnRepository) GetTotalBurned(ctx context.Context) (models.Amount, error) {
	return r.get(ctx, totalBurnedScope)
}

func (r *BurnRepository) SetTotalBurned(ctx context.Context, amount models.Amount) error {
	return r.set(ctx, totalBurnedScope, amount)
}

func (r *BurnRepository) GetUserBurned(ctx context.Context, account string) (models.Amount, error) {
	return r.get(ctx, "user:"+account)
}

func (r *BurnRepository) SetUserBurned(ctx context.Context, account string, amount models.Amount) error {
	return r.set(ctx, "user:"+account, amount)
}
