package services_test

import (
	"testing"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/config"
	"yieldpool/internal/models"
	"yieldpool/internal/services"

	"github.com/stretchr/testify/require"
)

func TestBalanceService_Credit(t *testing.T) {
	l, _ := newLedger(t)

	requireBalance(t, l, "PULSE", "alice", models.Zero())

	r, err := l.Balances.Credit(ctx, "admin", "PULSE", "alice", models.MustParseAmount("12.5"))
	require.NoError(t, err)
	require.Equal(t, []string{models.EventCredited}, eventTypes(r))
	require.Equal(t, "PULSE", r.Events[0].Attrs["token"])

	fund(t, l, "PULSE", "alice", models.MustParseAmount("0.5"))
	requireBalance(t, l, "PULSE", "alice", models.Tokens(13))
	requireBalance(t, l, "OTHER", "alice", models.Zero())
}

func TestBalanceService_CreditRejects(t *testing.T) {
	l, _ := newLedger(t)

	_, err := l.Balances.Credit(ctx, "admin", "", "alice", models.Tokens(1))
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = l.Balances.Credit(ctx, "admin", "PULSE", "alice", models.Zero())
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	for _, account := range []string{models.AccountEscrowCustody, models.AccountLotteryCustody, models.ReserveAccount("p1")} {
		_, err = l.Balances.Credit(ctx, "admin", "PULSE", account, models.Tokens(1))
		require.ErrorIs(t, err, common.ErrUnauthorized, account)
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := &config.LedgerConfig{
		DepositToken:           "PULSE",
		SafetyGracePeriod:      12 * time.Hour,
		LotteryBurnShareBps:    2000,
		LotteryInstantShareBps: 10000,
		LotteryDrawInterval:    7 * 24 * time.Hour,
		LotteryWinnersHistory:  5,
		PremiumToken:           "GOLD",
		PremiumMinBalance:      "0.5",
		MinCreationFee:         "2",
	}

	p, err := services.ParamsFromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, "GOLD", p.PremiumToken)
	requireAmount(t, models.MustParseAmount("0.5"), p.PremiumMinBalance)
	requireAmount(t, models.Tokens(2), p.MinCreationFee)

	cfg.MinCreationFee = "two"
	_, err = services.ParamsFromConfig(cfg)
	require.Error(t, err)

	cfg.MinCreationFee = "2"
	cfg.LotteryWinnersHistory = 0
	_, err = services.ParamsFromConfig(cfg)
	require.Error(t, err)
}

func TestOperationName(t *testing.T) {
	require.Equal(t, "Burn", services.OperationName(models.OP_BURN))
	require.Equal(t, "Unknown operation", services.OperationName("nope"))
}
