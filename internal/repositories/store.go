package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"yieldpool/internal/common"
	"yieldpool/internal/config"
	"yieldpool/internal/services"

	"github.com/jmoiron/sqlx"
)

var log = config.InitLogger()

// Store runs ledger transactions on a SQL database. Queries are written with
// ? placeholders and rebound for the driver, so the same code serves
// postgres and sqlite.
type Store struct {
	db        *sqlx.DB
	isolation sql.IsolationLevel
}

type StoreOption func(*Store)

// WithIsolation sets the isolation level of write transactions. Postgres
// deployments running more than one process use sql.LevelSerializable.
func WithIsolation(level sql.IsolationLevel) StoreOption {
	return func(s *Store) { s.isolation = level }
}

func NewStore(db *sqlx.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, isolation: sql.LevelDefault}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Update(ctx context.Context, fn func(tx services.Tx) error) error {
	var opts *sql.TxOptions
	if s.isolation != sql.LevelDefault {
		opts = &sql.TxOptions{Isolation: s.isolation}
	}

	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		log.Error("Error starting transaction: ", err)
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(newTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error while committing transaction: ", err)
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx services.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error("Error starting transaction: ", err)
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	return fn(newTx(tx))
}

// sqlTx combines the repositories bound to one transaction.
type sqlTx struct {
	*EscrowRepository
	*PoolRepository
	*ParticipantRepository
	*BalanceRepository
	*BurnRepository
	*LotteryRepository
	*OperationRepository
}

func newTx(tx *sqlx.Tx) *sqlTx {
	return &sqlTx{
		EscrowRepository:      NewEscrowRepository(tx),
		PoolRepository:        NewPoolRepository(tx),
		ParticipantRepository: NewParticipantRepository(tx),
		BalanceRepository:     NewBalanceRepository(tx),
		BurnRepository:        NewBurnRepository(tx),
		LotteryRepository:     NewLotteryRepository(tx),
		OperationRepository:   NewOperationRepository(tx),
	}
}

var _ services.Tx = (*sqlTx)(nil)

// wrapErr maps sql.ErrNoRows to common.ErrNotFound and everything else to
// common.ErrStoreUnavailable.
func wrapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", common.ErrNotFound, what)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Error("Error while accessing ", what, ": ", err)
	return fmt.Errorf("%w: %s: %v", common.ErrStoreUnavailable, what, err)
}
