package repositories

import (
	"context"
	"yieldpool/internal/models"

	"github.com/jmoiron/sqlx"
)

type OperationRepository struct {
	db *sqlx.Tx
}

func NewOperationRepository(db *sqlx.Tx) *OperationRepository {
	return &OperationRepository{
		db: db,
	}
}

func (r *OperationRepository) SaveOperation(ctx context.Context, op *models.Operation) error {
	query, args, err := r.db.BindNamed(
		"insert into operation(receipt_id, name, pool_id, caller, created_at, payload) values (:receipt_id, :name, :pool_id, :caller, :created_at, :payload) returning id",
		op,
	)
	if err != nil {
		log.Error("Error creating query: ", err)
		return err
	}
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&op.Id); err != nil {
		return wrapErr(err, "operation "+op.Name)
	}
	return nil
}

// ListOperations returns newest first; an empty poolId matches every pool.
func (r *OperationRepository) ListOperations(ctx context.Context, poolId string, offset, limit int) ([]models.Operation, error) {
	var ops []models.Operation
	var err error
	if poolId == "" {
		err = r.db.SelectContext(ctx, &ops, r.db.Rebind("select * from operation order by id desc limit ? offset ?"), limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &ops, r.db.Rebind("select * from operation where pool_id = ? order by id desc limit ? offset ?"), poolId, limit, offset)
	}
	if err != nil {
		return nil, wrapErr(err, "operations")
	}
	return ops, nil
}
