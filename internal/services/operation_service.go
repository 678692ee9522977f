package services

import (
	"context"
	"yieldpool/internal/models"
)

const maxOperationsPage = 100

type OperationService struct {
	exec *Executor
}

func NewOperationService(exec *Executor) *OperationService {
	return &OperationService{exec: exec}
}

// ListOperations returns the audit log, newest first. An empty poolId lists
// all operations.
func (s *OperationService) ListOperations(ctx context.Context, poolId string, offset, limit int) ([]models.Operation, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxOperationsPage {
		limit = maxOperationsPage
	}

	var ops []models.Operation
	err := s.exec.view(ctx, func(tx Tx) error {
		var err error
		ops, err = tx.ListOperations(ctx, poolId, offset, limit)
		return err
	})
	return ops, err
}

// OperationName is the human readable title used in notifications.
func OperationName(op string) string {
	switch op {
	case models.OP_DEPOSIT:
		return "Deposit"
	case models.OP_BURN:
		return "Burn"
	case models.OP_CANCEL_DEPOSIT:
		return "Deposit cancelled"
	case models.OP_CREATE_POOL:
		return "Pool created"
	case models.OP_JOIN_POOL:
		return "Pool joined"
	case models.OP_ADD_TO_WHITELIST:
		return "Whitelist updated"
	case models.OP_COMPLETE_POOL:
		return "Pool completed"
	case models.OP_CLAIM_REWARDS:
		return "Rewards claimed"
	case models.OP_RECLAIM_REWARDS:
		return "Rewards reclaimed"
	case models.OP_REFUND:
		return "Escrow refunded"
	case models.OP_SAFETY_REFUND:
		return "Safety refund"
	case models.OP_MONTHLY_DRAW:
		return "Monthly draw"
	case models.OP_CREDIT:
		return "Balance credited"
	default:
		return "Unknown operation"
	}
}
