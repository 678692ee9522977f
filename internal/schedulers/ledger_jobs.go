package schedulers

import (
	"context"
	"errors"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/config"
	"yieldpool/internal/services"
)

var log = config.InitLogger()

// Caller is the identity recorded for operations started by jobs.
const Caller = "system:scheduler"

const jobTimeout = time.Minute

func CompleteEndedPools(ps *services.PoolService) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := ps.CompleteEndedPools(ctx, Caller)
		if err != nil {
			log.Error("[CRON] Error while completing pools: ", err)
			return
		}
		if n > 0 {
			log.Infof("[CRON] Completed %d pools", n)
		}
	}
}

func RunMonthlyDraw(ls *services.LotteryService) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if _, err := ls.RunMonthlyDraw(ctx, Caller); err != nil {
			if errors.Is(err, common.ErrDrawNotDue) {
				log.Debug("[CRON] Monthly draw not due")
				return
			}
			log.Error("[CRON] Error while running monthly draw: ", err)
		}
	}
}

// SweepAbandonedEscrows reports burned deposits whose pool was never created
// after the grace period and, when autoRefund is set, safety refunds them.
func SweepAbandonedEscrows(es *services.EscrowService, autoRefund bool) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		abandoned, err := es.ListAbandoned(ctx)
		if err != nil {
			log.Error("[CRON] Error while listing abandoned escrows: ", err)
			return
		}

		for _, e := range abandoned {
			entry := log.WithField("pool_id", e.PoolId).WithField("depositor", e.Depositor)
			if !autoRefund {
				entry.Warn("[CRON] Abandoned escrow awaiting safety refund")
				continue
			}
			if _, err := es.SafetyRefund(ctx, Caller, e.PoolId); err != nil {
				entry.Error("[CRON] Error while safety refunding: ", err)
				continue
			}
			entry.Info("[CRON] Abandoned escrow safety refunded")
		}
	}
}
