package services

import (
	"fmt"
	"time"
	"yieldpool/internal/config"
	"yieldpool/internal/models"
)

// Params are the ledger constants.
type Params struct {
	DepositToken           string
	SafetyGracePeriod      time.Duration
	LotteryBurnShareBps    int64
	LotteryInstantShareBps int64
	DrawInterval           time.Duration
	WinnersHistory         int
	PremiumToken           string
	PremiumMinBalance      models.Amount
	MinCreationFee         models.Amount
}

func DefaultParams() Params {
	return Params{
		DepositToken:           "PULSE",
		SafetyGracePeriod:      24 * time.Hour,
		LotteryBurnShareBps:    5000,
		LotteryInstantShareBps: 5000,
		DrawInterval:           30 * 24 * time.Hour,
		WinnersHistory:         10,
		PremiumToken:           "PULSE",
		PremiumMinBalance:      models.Tokens(1000),
		MinCreationFee:         models.Tokens(1),
	}
}

// ParamsFromConfig converts the environment settings.
func ParamsFromConfig(c *config.LedgerConfig) (Params, error) {
	premium, err := models.ParseAmount(c.PremiumMinBalance)
	if err != nil {
		return Params{}, fmt.Errorf("PREMIUM_MIN_BALANCE: %w", err)
	}
	fee, err := models.ParseAmount(c.MinCreationFee)
	if err != nil {
		return Params{}, fmt.Errorf("MIN_CREATION_FEE: %w", err)
	}

	p := Params{
		DepositToken:           c.DepositToken,
		SafetyGracePeriod:      c.SafetyGracePeriod,
		LotteryBurnShareBps:    c.LotteryBurnShareBps,
		LotteryInstantShareBps: c.LotteryInstantShareBps,
		DrawInterval:           c.LotteryDrawInterval,
		WinnersHistory:         c.LotteryWinnersHistory,
		PremiumToken:           c.PremiumToken,
		PremiumMinBalance:      premium,
		MinCreationFee:         fee,
	}
	return p, p.Validate()
}

func (p Params) Validate() error {
	if p.DepositToken == "" {
		return fmt.Errorf("deposit token must be set")
	}
	if p.LotteryBurnShareBps < 0 || p.LotteryBurnShareBps > 10000 {
		return fmt.Errorf("lottery burn share %d bps out of range", p.LotteryBurnShareBps)
	}
	if p.LotteryInstantShareBps < 0 || p.LotteryInstantShareBps > 10000 {
		return fmt.Errorf("lottery instant share %d bps out of range", p.LotteryInstantShareBps)
	}
	if p.DrawInterval <= 0 {
		return fmt.Errorf("draw interval must be positive")
	}
	if p.SafetyGracePeriod < 0 {
		return fmt.Errorf("safety grace period must not be negative")
	}
	if p.WinnersHistory < 1 {
		return fmt.Errorf("winners history must keep at least one winner")
	}
	return nil
}
