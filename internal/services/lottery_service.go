package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"yieldpool/internal/common"
	"yieldpool/internal/entropy"
	"yieldpool/internal/models"
)

// LotteryService keeps the monthly pot and pays the instant burn lottery.
//
// Winners are picked by entropy.Pick over the sorted eligible set with a
// seed hashed from the outside entropy (if any), the operation, the ledger
// time and the pot state. Every winner record stores those inputs next to
// the seed and set size, so ReplaySeed can recompute it. Eligibility only
// grows, so the set a draw used is every account with eligible_since <=
// draw_time. The outside source decides how hard the result is to predict;
// with Static entropy anyone who knows the ledger state can compute it in
// advance.
type LotteryService struct {
	exec    *Executor
	params  Params
	entropy EntropySource
}

func NewLotteryService(exec *Executor, params Params, source EntropySource) *LotteryService {
	return &LotteryService{exec: exec, params: params, entropy: source}
}

// GetState returns the pot with the eligible set and the recent winners.
func (s *LotteryService) GetState(ctx context.Context) (*models.LotteryPot, error) {
	var pot *models.LotteryPot
	err := s.exec.view(ctx, func(tx Tx) error {
		p, err := s.potTx(ctx, tx, s.exec.Now())
		if err != nil {
			return err
		}
		if p.EligibleParticipants, err = tx.ListEligible(ctx); err != nil {
			return err
		}
		if p.RecentWinners, err = tx.ListWinners(ctx, s.params.WinnersHistory); err != nil {
			return err
		}
		pot = p
		return nil
	})
	return pot, err
}

// RunMonthlyDraw pays the pot to one eligible account once next_draw_time
// has passed, or rolls it over when nobody is eligible. Either way the epoch
// is consumed.
func (s *LotteryService) RunMonthlyDraw(ctx context.Context, caller string) (*models.Receipt, error) {
	ext := s.outsideEntropy(ctx)

	return s.exec.run(ctx, models.OP_MONTHLY_DRAW, "", caller, func(tx Tx, rec *recorder) error {
		pot, err := s.potTx(ctx, tx, rec.now)
		if err != nil {
			return err
		}
		if rec.now < pot.NextDrawTime {
			return fmt.Errorf("%w: next draw at %d", common.ErrDrawNotDue, pot.NextDrawTime)
		}

		eligible, err := tx.ListEligible(ctx)
		if err != nil {
			return err
		}

		if len(eligible) > 0 && !pot.CurrentPotAmount.IsZero() {
			burned, err := tx.GetTotalBurned(ctx)
			if err != nil {
				return err
			}
			w := &models.LotteryWinner{
				Amount:      pot.CurrentPotAmount,
				Kind:        models.WinKindMonthly,
				DrawTime:    rec.now,
				Entropy:     hex.EncodeToString(ext),
				PotAmount:   pot.CurrentPotAmount,
				TotalBurned: burned,
				DrawCount:   pot.DrawCount,
			}
			pickWinner(w, ext, eligible)

			if err := transfer(ctx, tx, s.params.DepositToken, models.AccountLotteryCustody, w.Account, w.Amount); err != nil {
				return err
			}
			if err := tx.AddWinner(ctx, w, s.params.WinnersHistory); err != nil {
				return err
			}
			pot.CurrentPotAmount = models.Zero()
			rec.emit(models.EventDrawCompleted, "", w.Account, w.Amount, winnerAttrs(w))
		} else {
			rec.emit(models.EventPotRolledOver, "", "", pot.CurrentPotAmount, map[string]string{
				"eligible": strconv.Itoa(len(eligible)),
			})
		}

		pot.DrawCount++
		interval := int64(s.params.DrawInterval.Seconds())
		for pot.NextDrawTime <= rec.now {
			pot.NextDrawTime += interval
		}
		return tx.SaveLotteryPot(ctx, pot)
	})
}

func (s *LotteryService) outsideEntropy(ctx context.Context) []byte {
	if s.entropy == nil {
		return nil
	}
	b, err := s.entropy.Entropy(ctx)
	if err != nil {
		log.Warn("Entropy source unavailable, selecting from ledger state only: ", err)
		return nil
	}
	return b
}

// potTx loads the pot; the first access schedules the first draw one
// interval after now.
func (s *LotteryService) potTx(ctx context.Context, tx Tx, now int64) (*models.LotteryPot, error) {
	pot, err := tx.GetLotteryPot(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return &models.LotteryPot{
			CurrentPotAmount: models.Zero(),
			NextDrawTime:     now + int64(s.params.DrawInterval.Seconds()),
		}, nil
	}
	return pot, err
}

// fundFromBurnTx routes the lottery share of a burn: the instant part goes
// to a picked eligible account, the rest to the monthly pot. It returns the
// lottery share; the remainder of burned is destroyed by the caller.
func (s *LotteryService) fundFromBurnTx(
	ctx context.Context,
	tx Tx,
	rec *recorder,
	poolId string,
	burned models.Amount,
	ext []byte,
) (models.Amount, error) {
	share, err := burned.Bps(s.params.LotteryBurnShareBps)
	if err != nil {
		return models.Zero(), err
	}
	instant, err := share.Bps(s.params.LotteryInstantShareBps)
	if err != nil {
		return models.Zero(), err
	}
	monthly, err := share.Sub(instant)
	if err != nil {
		return models.Zero(), err
	}

	pot, err := s.potTx(ctx, tx, rec.now)
	if err != nil {
		return models.Zero(), err
	}
	eligible, err := tx.ListEligible(ctx)
	if err != nil {
		return models.Zero(), err
	}

	if !instant.IsZero() && len(eligible) > 0 {
		w := &models.LotteryWinner{
			Amount:    instant,
			Kind:      models.WinKindInstant,
			PoolId:    poolId,
			DrawTime:  rec.now,
			Entropy:   hex.EncodeToString(ext),
			PotAmount: pot.CurrentPotAmount,
		}
		pickWinner(w, ext, eligible)

		if err := credit(ctx, tx, s.params.DepositToken, w.Account, instant); err != nil {
			return models.Zero(), err
		}
		if err := tx.AddWinner(ctx, w, s.params.WinnersHistory); err != nil {
			return models.Zero(), err
		}
		rec.emit(models.EventInstantPayout, poolId, w.Account, instant, winnerAttrs(w))
	} else if monthly, err = monthly.Add(instant); err != nil {
		return models.Zero(), err
	}

	if !monthly.IsZero() {
		if err := credit(ctx, tx, s.params.DepositToken, models.AccountLotteryCustody, monthly); err != nil {
			return models.Zero(), err
		}
		if pot.CurrentPotAmount, err = pot.CurrentPotAmount.Add(monthly); err != nil {
			return models.Zero(), err
		}
		rec.emit(models.EventLotteryFunded, poolId, "", monthly, map[string]string{"source": models.OP_BURN})
	}

	return share, tx.SaveLotteryPot(ctx, pot)
}

// addToPotTx moves amount from a custody account into the monthly pot.
func (s *LotteryService) addToPotTx(ctx context.Context, tx Tx, rec *recorder, poolId, from string, amount models.Amount) error {
	if amount.IsZero() {
		return nil
	}
	pot, err := s.potTx(ctx, tx, rec.now)
	if err != nil {
		return err
	}
	if err := transfer(ctx, tx, s.params.DepositToken, from, models.AccountLotteryCustody, amount); err != nil {
		return err
	}
	if pot.CurrentPotAmount, err = pot.CurrentPotAmount.Add(amount); err != nil {
		return err
	}
	rec.emit(models.EventLotteryFunded, poolId, "", amount, map[string]string{"source": models.OP_COMPLETE_POOL})
	return tx.SaveLotteryPot(ctx, pot)
}

func (s *LotteryService) markEligibleTx(ctx context.Context, tx Tx, rec *recorder, poolId, account string) error {
	added, err := tx.AddEligible(ctx, account, rec.now)
	if err != nil {
		return err
	}
	if added {
		rec.emit(models.EventEligible, poolId, account, models.Zero(), nil)
	}
	return nil
}

// drawSeed hashes the seed inputs recorded on w together with the outside
// entropy. Draws and ReplaySeed both go through it.
func drawSeed(ext []byte, w *models.LotteryWinner) []byte {
	if w.Kind == models.WinKindMonthly {
		return entropy.Seed(
			ext,
			[]byte(models.OP_MONTHLY_DRAW),
			entropy.Int64(w.DrawTime),
			entropy.Int64(w.DrawCount),
			[]byte(w.PotAmount.String()),
			[]byte(w.TotalBurned.String()),
		)
	}
	return entropy.Seed(
		ext,
		[]byte(models.OP_BURN),
		[]byte(w.PoolId),
		entropy.Int64(w.DrawTime),
		[]byte(w.PotAmount.String()),
	)
}

// pickWinner seeds a draw from the inputs already set on w and fills in the
// seed, the eligible set size and the picked account.
func pickWinner(w *models.LotteryWinner, ext []byte, eligible []string) {
	seed := drawSeed(ext, w)
	w.Seed = hex.EncodeToString(seed)
	w.EligibleCount = int64(len(eligible))
	w.Account = eligible[entropy.Pick(seed, len(eligible))]
}

// ReplaySeed recomputes the seed of a recorded win from its stored inputs.
// It matches w.Seed unless the record was altered.
func ReplaySeed(w *models.LotteryWinner) ([]byte, error) {
	ext, err := hex.DecodeString(w.Entropy)
	if err != nil {
		return nil, common.Invalid("entropy of winner %d: %v", w.Id, err)
	}
	return drawSeed(ext, w), nil
}

func winnerAttrs(w *models.LotteryWinner) map[string]string {
	attrs := map[string]string{
		"seed":       w.Seed,
		"eligible":   strconv.FormatInt(w.EligibleCount, 10),
		"entropy":    w.Entropy,
		"pot_amount": w.PotAmount.String(),
		"draw_time":  strconv.FormatInt(w.DrawTime, 10),
	}
	if w.Kind == models.WinKindMonthly {
		attrs["total_burned"] = w.TotalBurned.String()
		attrs["draw_count"] = strconv.FormatInt(w.DrawCount, 10)
	}
	return attrs
}
