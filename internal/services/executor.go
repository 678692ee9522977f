package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"yieldpool/internal/common"
	"yieldpool/internal/config"
	"yieldpool/internal/models"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = config.InitLogger()

// Publisher receives the events of every committed operation.
type Publisher interface {
	Publish(ctx context.Context, events []models.Event) error
}

// EntropySource supplies outside entropy mixed into winner selection.
type EntropySource interface {
	Entropy(ctx context.Context) ([]byte, error)
}

// Executor applies mutating operations one at a time. Each operation runs in
// a single store transaction together with its audit record.
type Executor struct {
	mu        sync.Mutex
	store     Store
	clock     func() time.Time
	publisher Publisher
	node      *snowflake.Node
}

func NewExecutor(store Store, clock func() time.Time, publisher Publisher) (*Executor, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Executor{
		store:     store,
		clock:     clock,
		publisher: publisher,
		node:      node,
	}, nil
}

// Now is the ledger time in unix seconds.
func (e *Executor) Now() int64 {
	return e.clock().Unix()
}

type recorder struct {
	now    int64
	node   *snowflake.Node
	events []models.Event
}

func (r *recorder) emit(typ, poolId, account string, amount models.Amount, attrs map[string]string) {
	r.events = append(r.events, models.Event{
		Id:      r.node.Generate().Int64(),
		Type:    typ,
		PoolId:  poolId,
		Account: account,
		Amount:  amount,
		Time:    r.now,
		Attrs:   attrs,
	})
}

func (e *Executor) run(
	ctx context.Context,
	op, poolId, caller string,
	fn func(tx Tx, rec *recorder) error,
) (*models.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if caller == "" {
		return nil, common.Invalid("caller must be set")
	}

	receipt, err := e.commit(ctx, op, poolId, caller, fn)
	fields := logrus.Fields{
		"op":      op,
		"pool_id": poolId,
		"caller":  caller,
	}
	if err != nil {
		fields["kind"] = common.Kind(err)
		if common.Kind(err) == "Internal" || common.Kind(err) == "StoreUnavailable" {
			log.WithFields(fields).Error("Operation failed: ", err)
		} else {
			log.WithFields(fields).Debug("Operation rejected: ", err)
		}
		return nil, err
	}

	fields["receipt"] = receipt.Id
	fields["events"] = len(receipt.Events)
	log.WithFields(fields).Info("Operation committed")

	if e.publisher != nil && len(receipt.Events) > 0 {
		if err := e.publisher.Publish(ctx, receipt.Events); err != nil {
			log.WithFields(fields).Warn("Error while publishing events: ", err)
		}
	}

	return receipt, nil
}

func (e *Executor) commit(
	ctx context.Context,
	op, poolId, caller string,
	fn func(tx Tx, rec *recorder) error,
) (*models.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	receipt := &models.Receipt{
		Id:     uuid.NewString(),
		Op:     op,
		PoolId: poolId,
		Caller: caller,
		Time:   e.Now(),
	}
	rec := &recorder{now: receipt.Time, node: e.node}

	err := e.store.Update(ctx, func(tx Tx) error {
		rec.events = rec.events[:0]
		if err := fn(tx, rec); err != nil {
			return err
		}

		payload, err := json.Marshal(rec.events)
		if err != nil {
			return fmt.Errorf("failed to encode events: %w", err)
		}
		return tx.SaveOperation(ctx, &models.Operation{
			ReceiptId: receipt.Id,
			Name:      op,
			PoolId:    poolId,
			Caller:    caller,
			CreatedAt: receipt.Time,
			Payload:   string(payload),
		})
	})
	if err != nil {
		return nil, err
	}

	receipt.Events = append([]models.Event(nil), rec.events...)
	return receipt, nil
}

// view runs a read-only query. Reads do not take the operation lock.
func (e *Executor) view(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.View(ctx, fn)
}
