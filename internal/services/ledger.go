package services

import (
	"time"
)

// Ledger wires the services around one store and one executor.
type Ledger struct {
	Balances   *BalanceService
	Escrow     *EscrowService
	Burns      *BurnService
	Pools      *PoolService
	Rewards    *RewardService
	Lottery    *LotteryService
	Operations *OperationService

	exec   *Executor
	params Params
}

type options struct {
	clock     func() time.Time
	publisher Publisher
	entropy   EntropySource
}

type Option func(*options)

func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithEntropy(e EntropySource) Option {
	return func(o *options) { o.entropy = e }
}

func NewLedger(store Store, params Params, opts ...Option) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	exec, err := NewExecutor(store, o.clock, o.publisher)
	if err != nil {
		return nil, err
	}

	burns := NewBurnService(exec)
	lottery := NewLotteryService(exec, params, o.entropy)
	escrow := NewEscrowService(exec, params, burns, lottery)

	return &Ledger{
		Balances:   NewBalanceService(exec),
		Escrow:     escrow,
		Burns:      burns,
		Pools:      NewPoolService(exec, params, escrow, lottery),
		Rewards:    NewRewardService(exec),
		Lottery:    lottery,
		Operations: NewOperationService(exec),
		exec:       exec,
		params:     params,
	}, nil
}

func (l *Ledger) Params() Params {
	return l.params
}

// Now is the ledger clock in unix seconds.
func (l *Ledger) Now() int64 {
	return l.exec.Now()
}
