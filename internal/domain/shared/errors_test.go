package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Matching(t *testing.T) {
	dbErr := errors.New("duplicated key not allowed")
	err := fmt.Errorf("save stock item: %w", ErrConcurrencyConflict.Wrap(dbErr))

	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, HasCode(err, CodeConcurrencyConflict))
	assert.Contains(t, err.Error(), "duplicated key")

	assert.ErrorIs(t, Errorf(CodeNotFound, "bill %s", "PB-1"), ErrNotFound)
	assert.Equal(t, "bill PB-1", Errorf(CodeNotFound, "bill %s", "PB-1").Error())
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}
