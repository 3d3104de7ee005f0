package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	cloned := Clone(ErrDuplicateScan, "Ada already scanned")
	assert.True(t, errors.Is(cloned, ErrDuplicateScan))
	assert.False(t, errors.Is(cloned, ErrStalePayload))

	wrapped := fmt.Errorf("record scan: %w", cloned)
	assert.True(t, errors.Is(wrapped, ErrDuplicateScan))
}

func TestFromErrorClassifiesStoreFailures(t *testing.T) {
	err := FromError(fmt.Errorf("insert record: %w", context.DeadlineExceeded))
	require.NotNil(t, err)
	assert.Equal(t, ErrStoreUnavailable.Code, err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)

	generic := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, generic.Code)
	assert.Nil(t, FromError(nil))
}

func TestFromStore(t *testing.T) {
	assert.Equal(t, ErrStoreUnavailable.Code, FromStore(context.Canceled, "x").Code)
	internal := FromStore(errors.New("syntax error"), "failed to load session")
	assert.Equal(t, ErrInternal.Code, internal.Code)
	assert.Equal(t, "failed to load session", internal.Message)
}

func TestDistinctCodes(t *testing.T) {
	seen := map[string]struct{}{}
	for _, e := range []*Error{ErrMalformedPayload, ErrStalePayload, ErrFuturePayload, ErrDuplicateSession, ErrDuplicateScan, ErrNotOwner, ErrSessionNotActive, ErrUnknownStudent, ErrNotFound, ErrStoreUnavailable} {
		_, dup := seen[e.Code]
		require.False(t, dup, e.Code)
		seen[e.Code] = struct{}{}
	}
}
