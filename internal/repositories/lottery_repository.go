package repositories

import (
	"context"
	"sort"
	"yieldpool/internal/models"

	"github.com/jmoiron/sqlx"
)

const lotteryPotId = 1

type LotteryRepository struct {
	db *sqlx.Tx
}

func NewLotteryRepository(db *sqlx.Tx) *LotteryRepository {
	return &LotteryRepository{
		db: db,
	}
}

func (r *LotteryRepository) GetLotteryPot(ctx context.Context) (*models.LotteryPot, error) {
	var pot models.LotteryPot
	query := r.db.Rebind("select current_pot_amount, next_draw_time, draw_count from lottery_pot where id = ?")
	if err := r.db.GetContext(ctx, &pot, query, lotteryPotId); err != nil {
		return nil, wrapErr(err, "lottery pot")
	}
	return &pot, nil
}

func (r *LotteryRepository) SaveLotteryPot(ctx context.Context, pot *models.LotteryPot) error {
	query := r.db.Rebind(`insert into lottery_pot(id, current_pot_amount, next_draw_time, draw_count) values (?, ?, ?, ?)
on conflict (id) do update set
current_pot_amount = excluded.current_pot_amount,
next_draw_time = excluded.next_draw_time,
draw_count = excluded.draw_count`)
	_, err := r.db.ExecContext(ctx, query, lotteryPotId, pot.CurrentPotAmount, pot.NextDrawTime, pot.DrawCount)
	return wrapErr(err, "lottery pot")
}

func (r *LotteryRepository) AddEligible(ctx context.Context, account string, since int64) (bool, error) {
	query := r.db.Rebind("insert into lottery_eligible(account, eligible_since) values (?, ?) on conflict (account) do nothing")
	res, err := r.db.ExecContext(ctx, query, account, since)
	if err != nil {
		return false, wrapErr(err, "eligible "+account)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "eligible "+account)
	}
	return n == 1, nil
}

func (r *LotteryRepository) ListEligible(ctx context.Context) ([]string, error) {
	var list []string
	if err := r.db.SelectContext(ctx, &list, "select account from lottery_eligible"); err != nil {
		return nil, wrapErr(err, "eligible accounts")
	}
	// Byte order, independent of the database collation.
	sort.Strings(list)
	return list, nil
}

func (r *LotteryRepository) AddWinner(ctx context.Context, w *models.LotteryWinner, keep int) error {
	query, args, err := r.db.BindNamed(
		`insert into lottery_winner(account, amount, kind, pool_id, seed, eligible_count, draw_time,
                           entropy, pot_amount, total_burned, draw_count)
values (:account, :amount, :kind, :pool_id, :seed, :eligible_count, :draw_time,
        :entropy, :pot_amount, :total_burned, :draw_count)
returning id`,
		w,
	)
	if err != nil {
		log.Error("Error while creating winner query: ", err)
		return err
	}
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&w.Id); err != nil {
		return wrapErr(err, "lottery winner")
	}

	if keep <= 0 {
		return nil
	}
	trim := r.db.Rebind("delete from lottery_winner where id not in (select id from lottery_winner order by id desc limit ?)")
	_, err = r.db.ExecContext(ctx, trim, keep)
	return wrapErr(err, "lottery winners")
}

func (r *LotteryRepository) ListWinners(ctx context.Context, limit int) ([]models.LotteryWinner, error) {
	var list []models.LotteryWinner
	query := r.db.Rebind("select * from lottery_winner order by id desc limit ?")
	if err := r.db.SelectContext(ctx, &list, query, max(limit, 0)); err != nil {
		return nil, wrapErr(err, "lottery winners")
	}
	return list, nil
}
