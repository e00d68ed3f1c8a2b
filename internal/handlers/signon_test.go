package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

// Sign-off tolerates a missing active contract, but only that: any other
// failure from closing the contract must abort the transaction instead of
// silently recording a history row without a contract.
func TestNoActiveContract(t *testing.T) {
	assert.True(t, noActiveContract(pgx.ErrNoRows))
	assert.True(t, noActiveContract(fmt.Errorf("scan: %w", pgx.ErrNoRows)))

	assert.False(t, noActiveContract(errors.New("connection reset")))
	assert.False(t, noActiveContract(fmt.Errorf("tx aborted: %w", errors.New("deadlock"))))
}
