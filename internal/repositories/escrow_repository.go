package repositories

import (
	"context"
	"yieldpool/internal/models"

	"github.com/jmoiron/sqlx"
)

type EscrowRepository struct {
	db *sqlx.Tx
}

func NewEscrowRepository(db *sqlx.Tx) *EscrowRepository {
	return &EscrowRepository{
		db: db,
	}
}

func (r *EscrowRepository) GetEscrow(ctx context.Context, poolId string) (*models.EscrowDeposit, error) {
	var e models.EscrowDeposit
	if err := r.db.GetContext(ctx, &e, r.db.Rebind("select * from escrow_deposit where pool_id = ?"), poolId); err != nil {
		return nil, wrapErr(err, "escrow "+poolId)
	}
	return &e, nil
}

func (r *EscrowRepository) SaveEscrow(ctx context.Context, e *models.EscrowDeposit) error {
	_, err := r.db.NamedExecContext(
		ctx,
		`insert into escrow_deposit(pool_id, depositor, total_amount, burn_amount, escrow_amount, deposit_time, pool_duration, burned, burn_time, pool_completed, refunded, refund_kind, refund_time)
values (:pool_id, :depositor, :total_amount, :burn_amount, :escrow_amount, :deposit_time, :pool_duration, :burned, :burn_time, :pool_completed, :refunded, :refund_kind, :refund_time)
on conflict (pool_id) do update set
depositor = excluded.depositor,
total_amount = excluded.total_amount,
burn_amount = excluded.burn_amount,
escrow_amount = excluded.escrow_amount,
deposit_time = excluded.deposit_time,
pool_duration = excluded.pool_duration,
burned = excluded.burned,
burn_time = excluded.burn_time,
pool_completed = excluded.pool_completed,
refunded = excluded.refunded,
refund_kind = excluded.refund_kind,
refund_time = excluded.refund_time`,
		e,
	)
	return wrapErr(err, "escrow "+e.PoolId)
}

func (r *EscrowRepository) ListAbandonedEscrows(ctx context.Context, depositedBefore int64) ([]models.EscrowDeposit, error) {
	var list []models.EscrowDeposit
	query := r.db.Rebind(`select e.* from escrow_deposit as e
left join pool as p on p.pool_id = e.pool_id
where e.burned = ? and e.refunded = ? and e.deposit_time <= ? and p.pool_id is null
order by e.deposit_time, e.pool_id`)
	if err := r.db.SelectContext(ctx, &list, query, true, false, depositedBefore); err != nil {
		return nil, wrapErr(err, "abandoned escrows")
	}
	return list, nil
}
