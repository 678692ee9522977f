package repositories

import (
	"context"
	"yieldpool/internal/models"

	"github.com/jmoiron/sqlx"
)

// ParticipantRepository stores pool membership and the pool whitelists.
type ParticipantRepository struct {
	db *sqlx.Tx
}

func NewParticipantRepository(db *sqlx.Tx) *ParticipantRepository {
	return &ParticipantRepository{
		db: db,
	}
}

func (r *ParticipantRepository) GetParticipant(ctx context.Context, poolId, account string) (*models.Participant, error) {
	var p models.Participant
	query := r.db.Rebind("select * from participant where pool_id = ? and account = ?")
	if err := r.db.GetContext(ctx, &p, query, poolId, account); err != nil {
		return nil, wrapErr(err, "participant "+account+" in "+poolId)
	}
	return &p, nil
}

func (r *ParticipantRepository) SaveParticipant(ctx context.Context, p *models.Participant) error {
	_, err := r.db.NamedExecContext(
		ctx,
		`insert into participant(pool_id, account, nft_balance_at_join, rewards_claimed, join_time, is_active)
values (:pool_id, :account, :nft_balance_at_join, :rewards_claimed, :join_time, :is_active)
on conflict (pool_id, account) do update set
rewards_claimed = excluded.rewards_claimed,
is_active = excluded.is_active`,
		p,
	)
	return wrapErr(err, "participant "+p.Account+" in "+p.PoolId)
}

func (r *ParticipantRepository) ListParticipants(ctx context.Context, poolId string) ([]models.Participant, error) {
	var list []models.Participant
	query := r.db.Rebind("select * from participant where pool_id = ? order by join_time, account")
	if err := r.db.SelectContext(ctx, &list, query, poolId); err != nil {
		return nil, wrapErr(err, "participants of "+poolId)
	}
	return list, nil
}

func (r *ParticipantRepository) IsWhitelisted(ctx context.Context, poolId, account string) (bool, error) {
	var count int
	query := r.db.Rebind("select count(*) from pool_whitelist where pool_id = ? and account = ?")
	if err := r.db.QueryRowxContext(ctx, query, poolId, account).Scan(&count); err != nil {
		return false, wrapErr(err, "whitelist of "+poolId)
	}
	return count > 0, nil
}

func (r *ParticipantRepository) AddToWhitelist(ctx context.Context, poolId, account string) (bool, error) {
	query := r.db.Rebind("insert into pool_whitelist(pool_id, account) values (?, ?) on conflict (pool_id, account) do nothing")
	res, err := r.db.ExecContext(ctx, query, poolId, account)
	if err != nil {
		return false, wrapErr(err, "whitelist of "+poolId)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "whitelist of "+poolId)
	}
	return n == 1, nil
}
