package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrPoolFull, "PoolFull"},
		{fmt.Errorf("join p1: %w", ErrNotWhitelisted), "NotWhitelisted"},
		{ErrAlreadyRefunded, "AlreadyRefunded"},
		{ErrPoolNotCompleted, "PoolNotCompleted"},
		{Invalid("amount %q", "x"), "InvalidArgument"},
		{fmt.Errorf("%w: %w", ErrStoreUnavailable, errors.New("conn reset")), "StoreUnavailable"},
		{errors.New("boom"), "Internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err))
	}
}

func TestAlreadyRefundedMatchesPoolNotCompleted(t *testing.T) {
	assert.ErrorIs(t, ErrAlreadyRefunded, ErrPoolNotCompleted)
	assert.NotErrorIs(t, ErrPoolNotCompleted, ErrAlreadyRefunded)
}

func TestInvalid(t *testing.T) {
	err := Invalid("max participants %d", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "max participants 0")
}
