package lock

import (
	"context"
	"testing"

	"github.com/erp/purchasing/internal/domain/purchasing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "purchasing:vendor:V1", Key("V1"))
}

func TestLocalVendorLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalVendorLocker()

	release, err := l.Acquire(ctx, "V1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "V1")
	assert.ErrorIs(t, err, purchasing.ErrVendorBusy)

	other, err := l.Acquire(ctx, "V2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	again, err := l.Acquire(ctx, "V1")
	require.NoError(t, err)
	assert.NoError(t, again(ctx))
}
