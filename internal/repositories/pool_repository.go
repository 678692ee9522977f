package repositories

import (
	"context"
	"math"
	"strings"
	"yieldpool/internal/models"
	"yieldpool/internal/services"

	"github.com/jmoiron/sqlx"
)

type PoolRepository struct {
	db *sqlx.Tx
}

func NewPoolRepository(db *sqlx.Tx) *PoolRepository {
	return &PoolRepository{
		db: db,
	}
}

func (r *PoolRepository) GetPool(ctx context.Context, poolId string) (*models.Pool, error) {
	var pool models.Pool
	if err := r.db.GetContext(ctx, &pool, r.db.Rebind("select * from pool where pool_id = ?"), poolId); err != nil {
		return nil, wrapErr(err, "pool "+poolId)
	}
	return &pool, nil
}

func (r *PoolRepository) SavePool(ctx context.Context, pool *models.Pool) error {
	_, err := r.db.NamedExecContext(
		ctx,
		`insert into pool(pool_id, creator, nft_collection, reward_token, total_reward_amount, duration, start_time, end_time, participant_count, is_active, is_completed, completed_at, minimum_nft_balance, max_participants, visibility, creation_fee)
values (:pool_id, :creator, :nft_collection, :reward_token, :total_reward_amount, :duration, :start_time, :end_time, :participant_count, :is_active, :is_completed, :completed_at, :minimum_nft_balance, :max_participants, :visibility, :creation_fee)
on conflict (pool_id) do update set
participant_count = excluded.participant_count,
is_active = excluded.is_active,
is_completed = excluded.is_completed,
completed_at = excluded.completed_at`,
		pool,
	)
	return wrapErr(err, "pool "+pool.PoolId)
}

func (r *PoolRepository) ListPools(ctx context.Context, f services.PoolFilter) ([]models.Pool, error) {
	var (
		where []string
		args  []any
	)
	if f.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}
	if f.EndedBefore > 0 {
		where = append(where, "end_time <= ?")
		args = append(args, f.EndedBefore)
	}
	if f.Creator != "" {
		where = append(where, "creator = ?")
		args = append(args, f.Creator)
	}

	query := "select * from pool"
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by start_time, pool_id limit ? offset ?"

	limit := f.Limit
	if limit <= 0 {
		limit = math.MaxInt32
	}
	args = append(args, limit, max(f.Offset, 0))

	var pools []models.Pool
	if err := r.db.SelectContext(ctx, &pools, r.db.Rebind(query), args...); err != nil {
		return nil, wrapErr(err, "pools")
	}
	return pools, nil
}
