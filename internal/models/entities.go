package models

import (
	"math/big"
	"strings"
)

// Custody accounts held by the ledger itself.
const (
	AccountEscrowCustody  = "custody:escrow"
	AccountFeeCustody     = "custody:fees"
	AccountLotteryCustody = "custody:lottery"
	reservePrefix         = "reserve:"
)

// ReserveAccount is the reward reserve of a pool.
func ReserveAccount(poolId string) string {
	return reservePrefix + poolId
}

// IsCustodyAccount reports whether account is owned by the ledger.
func IsCustodyAccount(account string) bool {
	return strings.HasPrefix(account, "custody:") || strings.HasPrefix(account, reservePrefix)
}

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityWhitelist Visibility = "whitelist"
	VisibilityPremium   Visibility = "premium"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityWhitelist, VisibilityPremium:
		return true
	}
	return false
}

// Refund kinds recorded on a terminal escrow.
const (
	RefundKindRefund = "refund"
	RefundKindSafety = "safety_refund"
	RefundKindCancel = "cancel"
)

type EscrowDeposit struct {
	PoolId        string `db:"pool_id" json:"pool_id"`
	Depositor     string `db:"depositor" json:"depositor"`
	TotalAmount   Amount `db:"total_amount" json:"total_amount"`
	BurnAmount    Amount `db:"burn_amount" json:"burn_amount"`
	EscrowAmount  Amount `db:"escrow_amount" json:"escrow_amount"`
	DepositTime   int64  `db:"deposit_time" json:"deposit_time"`
	PoolDuration  int64  `db:"pool_duration" json:"pool_duration"`
	Burned        bool   `db:"burned" json:"burned"`
	BurnTime      int64  `db:"burn_time" json:"burn_time"`
	PoolCompleted bool   `db:"pool_completed" json:"pool_completed"`
	Refunded      bool   `db:"refunded" json:"refunded"`
	RefundKind    string `db:"refund_kind" json:"refund_kind"`
	RefundTime    int64  `db:"refund_time" json:"refund_time"`
}

type EscrowState string

const (
	EscrowDeposited      EscrowState = "deposited"
	EscrowBurned         EscrowState = "burned"
	EscrowPoolCreated    EscrowState = "pool_created"
	EscrowPoolCompleted  EscrowState = "pool_completed"
	EscrowRefunded       EscrowState = "refunded"
	EscrowAbandoned      EscrowState = "abandoned"
	EscrowSafetyRefunded EscrowState = "safety_refunded"
	EscrowCancelled      EscrowState = "cancelled"
)

// State derives the lifecycle stage. A burned escrow without a pool is
// abandoned once the grace period has elapsed at now.
func (e *EscrowDeposit) State(hasPool bool, now, gracePeriod int64) EscrowState {
	switch {
	case e.Refunded && e.RefundKind == RefundKindSafety:
		return EscrowSafetyRefunded
	case e.Refunded && e.RefundKind == RefundKindCancel:
		return EscrowCancelled
	case e.Refunded:
		return EscrowRefunded
	case e.PoolCompleted:
		return EscrowPoolCompleted
	case hasPool:
		return EscrowPoolCreated
	case e.Burned && now >= e.DepositTime+gracePeriod:
		return EscrowAbandoned
	case e.Burned:
		return EscrowBurned
	default:
		return EscrowDeposited
	}
}

type Pool struct {
	PoolId            string     `db:"pool_id" json:"pool_id"`
	Creator           string     `db:"creator" json:"creator"`
	NftCollection     string     `db:"nft_collection" json:"nft_collection"`
	RewardToken       string     `db:"reward_token" json:"reward_token"`
	TotalRewardAmount Amount     `db:"total_reward_amount" json:"total_reward_amount"`
	Duration          int64      `db:"duration" json:"duration"`
	StartTime         int64      `db:"start_time" json:"start_time"`
	EndTime           int64      `db:"end_time" json:"end_time"`
	ParticipantCount  int64      `db:"participant_count" json:"participant_count"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	IsCompleted       bool       `db:"is_completed" json:"is_completed"`
	CompletedAt       int64      `db:"completed_at" json:"completed_at"`
	MinimumNftBalance int64      `db:"minimum_nft_balance" json:"minimum_nft_balance"`
	MaxParticipants   int64      `db:"max_participants" json:"max_participants"`
	Visibility        Visibility `db:"visibility" json:"visibility"`
	CreationFee       Amount     `db:"creation_fee" json:"creation_fee"`
	// TotalWeight is filled by queries; it is derived from participants and
	// never persisted.
	TotalWeight int64 `db:"-" json:"total_weight"`
}

// RewardPerNft is total_reward_amount / total_weight, floored.
func (p *Pool) RewardPerNft(totalWeight int64) Amount {
	if totalWeight <= 0 {
		return Zero()
	}
	a, err := p.TotalRewardAmount.MulDiv(big.NewInt(1), big.NewInt(totalWeight))
	if err != nil {
		return Zero()
	}
	return a
}

type Participant struct {
	PoolId           string `db:"pool_id" json:"pool_id"`
	Account          string `db:"account" json:"account"`
	NftBalanceAtJoin int64  `db:"nft_balance_at_join" json:"nft_balance_at_join"`
	RewardsClaimed   Amount `db:"rewards_claimed" json:"rewards_claimed"`
	JoinTime         int64  `db:"join_time" json:"join_time"`
	IsActive         bool   `db:"is_active" json:"is_active"`
}

type BurnTotals struct {
	TotalBurned        Amount            `json:"total_burned"`
	PerDepositorBurned map[string]Amount `json:"per_depositor_burned,omitempty"`
}

type LotteryPot struct {
	CurrentPotAmount Amount `db:"current_pot_amount" json:"current_pot_amount"`
	NextDrawTime     int64  `db:"next_draw_time" json:"next_draw_time"`
	DrawCount        int64  `db:"draw_count" json:"draw_count"`
	// Filled by queries.
	EligibleParticipants []string        `db:"-" json:"eligible_participants"`
	RecentWinners        []LotteryWinner `db:"-" json:"recent_winners"`
}

const (
	WinKindInstant = "instant"
	WinKindMonthly = "monthly"
)

// LotteryWinner keeps everything needed to replay a selection: the inputs
// the seed was hashed from, the seed and the size of the eligible set it was
// reduced over. Entropy is the hex of the outside entropy, empty when the
// source was unavailable. TotalBurned and DrawCount are only seed inputs of
// monthly draws.
type LotteryWinner struct {
	Id            int64  `db:"id" json:"id"`
	Account       string `db:"account" json:"account"`
	Amount        Amount `db:"amount" json:"amount"`
	Kind          string `db:"kind" json:"kind"`
	PoolId        string `db:"pool_id" json:"pool_id,omitempty"`
	Seed          string `db:"seed" json:"seed"`
	EligibleCount int64  `db:"eligible_count" json:"eligible_count"`
	DrawTime      int64  `db:"draw_time" json:"draw_time"`
	Entropy       string `db:"entropy" json:"entropy"`
	PotAmount     Amount `db:"pot_amount" json:"pot_amount"`
	TotalBurned   Amount `db:"total_burned" json:"total_burned"`
	DrawCount     int64  `db:"draw_count" json:"draw_count"`
}

type Balance struct {
	Token   string `db:"token" json:"token"`
	Account string `db:"account" json:"account"`
	Amount  Amount `db:"amount" json:"amount"`
}
