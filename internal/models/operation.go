package models

// Operations of the ledger. The names are stable and used in receipts, the
// operation log and event routing.
const (
	OP_DEPOSIT          = "deposit"
	OP_BURN             = "burn"
	OP_CANCEL_DEPOSIT   = "cancel_deposit"
	OP_CREATE_POOL      = "create_pool"
	OP_JOIN_POOL        = "join_pool"
	OP_ADD_TO_WHITELIST = "add_to_whitelist"
	OP_COMPLETE_POOL    = "complete_pool"
	OP_CLAIM_REWARDS    = "claim_rewards"
	OP_RECLAIM_REWARDS  = "reclaim_rewards"
	OP_REFUND           = "refund"
	OP_SAFETY_REFUND    = "safety_refund"
	OP_MONTHLY_DRAW     = "run_monthly_draw"
	OP_CREDIT           = "credit"
)

// Event types emitted by committed operations.
const (
	EventDeposited        = "escrow.deposited"
	EventBurned           = "escrow.burned"
	EventDepositCancelled = "escrow.cancelled"
	EventEscrowCompleted  = "escrow.completed"
	EventRefunded         = "escrow.refunded"
	EventSafetyRefunded   = "escrow.safety_refunded"
	EventPoolCreated      = "pool.created"
	EventPoolJoined       = "pool.joined"
	EventWhitelisted      = "pool.whitelisted"
	EventPoolCompleted    = "pool.completed"
	EventRewardsClaimed   = "rewards.claimed"
	EventRewardsReclaimed = "rewards.reclaimed"
	EventLotteryFunded    = "lottery.funded"
	EventInstantPayout    = "lottery.instant_payout"
	EventDrawCompleted    = "lottery.draw_completed"
	EventPotRolledOver    = "lottery.rolled_over"
	EventEligible         = "lottery.eligible"
	EventCredited         = "balance.credited"
)

// Event ids are snowflake ids above 2^53, so JSON carries them as strings.
type Event struct {
	Id      int64             `json:"id,string"`
	Type    string            `json:"type"`
	PoolId  string            `json:"pool_id,omitempty"`
	Account string            `json:"account,omitempty"`
	Amount  Amount            `json:"amount"`
	Time    int64             `json:"time"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Receipt is returned by every successful mutating operation.
type Receipt struct {
	Id     string  `json:"id"`
	Op     string  `json:"op"`
	PoolId string  `json:"pool_id,omitempty"`
	Caller string  `json:"caller"`
	Time   int64   `json:"time"`
	Events []Event `json:"events"`
}

// Operation is one line of the durable audit log, written in the same
// transaction as the state change it describes.
type Operation struct {
	Id        int64  `db:"id" json:"id"`
	ReceiptId string `db:"receipt_id" json:"receipt_id"`
	Name      string `db:"name" json:"name"`
	PoolId    string `db:"pool_id" json:"pool_id"`
	Caller    string `db:"caller" json:"caller"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	Payload   string `db:"payload" json:"payload"`
}
