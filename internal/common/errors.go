// Package common holds the failure kinds shared by every ledger component.
// Callers compare with errors.Is; Kind maps an error to its stable name.
package common

import (
	"errors"
	"fmt"
)

// Escrow lifecycle
var (
	ErrDuplicatePool     = errors.New("pool id already has an active escrow or pool")
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyBurned     = errors.New("escrow deposit already burned")
	ErrPoolNotCompleted  = errors.New("pool not completed")
	ErrEscrowNotReady    = errors.New("escrow not ready")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("arithmetic overflow")

	// ErrAlreadyRefunded is terminal. It also matches ErrPoolNotCompleted so
	// callers that only know the base taxonomy still see a refund rejection.
	ErrAlreadyRefunded   = fmt.Errorf("%w: escrow already refunded", ErrPoolNotCompleted)
	ErrPoolExists        = errors.New("pool was created for this escrow")
	ErrGracePeriodActive = errors.New("safety refund grace period has not elapsed")
)

// Pool registry
var (
	ErrPoolInactive           = errors.New("pool is not active")
	ErrPoolFull               = errors.New("pool is full")
	ErrNotWhitelisted         = errors.New("account is not whitelisted")
	ErrInsufficientNFTBalance = errors.New("insufficient nft balance")
	ErrNotYetEnded            = errors.New("pool has not ended yet")
	ErrAlreadyJoined          = errors.New("account already joined the pool")
	ErrPremiumTierRequired    = errors.New("premium tier balance required")
)

// Rewards and lottery
var (
	ErrNothingToClaim  = errors.New("nothing to claim")
	ErrNotParticipant  = errors.New("account is not an active participant")
	ErrDrawNotDue      = errors.New("lottery draw is not due yet")
	ErrUnauthorized    = errors.New("caller is not allowed to perform this operation")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrStoreUnavailable wraps infrastructure failures of the backing store.
var ErrStoreUnavailable = errors.New("store unavailable")

var kinds = []struct {
	err  error
	name string
}{
	// ErrAlreadyRefunded must be checked before ErrPoolNotCompleted.
	{ErrAlreadyRefunded, "AlreadyRefunded"},
	{ErrDuplicatePool, "DuplicatePool"},
	{ErrNotFound, "NotFound"},
	{ErrAlreadyBurned, "AlreadyBurned"},
	{ErrPoolNotCompleted, "PoolNotCompleted"},
	{ErrEscrowNotReady, "EscrowNotReady"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrOverflow, "Overflow"},
	{ErrPoolExists, "PoolExists"},
	{ErrGracePeriodActive, "GracePeriodActive"},
	{ErrPoolInactive, "PoolInactive"},
	{ErrPoolFull, "PoolFull"},
	{ErrNotWhitelisted, "NotWhitelisted"},
	{ErrInsufficientNFTBalance, "InsufficientNFTBalance"},
	{ErrNotYetEnded, "NotYetEnded"},
	{ErrAlreadyJoined, "AlreadyJoined"},
	{ErrPremiumTierRequired, "PremiumTierRequired"},
	{ErrNothingToClaim, "NothingToClaim"},
	{ErrNotParticipant, "NotParticipant"},
	{ErrDrawNotDue, "DrawNotDue"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidArgument, "InvalidArgument"},
	{ErrStoreUnavailable, "StoreUnavailable"},
}

// Kind returns the taxonomy name of err, or "Internal" when err does not
// belong to the taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// Invalid wraps ErrInvalidArgument with a description of the bad input.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
