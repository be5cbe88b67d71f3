package capacity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	expiresAt := time.Now().UTC().Add(10 * 24 * time.Hour)
	adminID := uint(7)
	reason := "manual grant"

	t.Run("should create token successfully", func(t *testing.T) {
		token, err := NewToken(1, 3, expiresAt, &adminID, &reason)

		assert.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, uint(1), token.TrainerID())
		assert.Equal(t, uint(3), token.Quantity())
		assert.True(t, token.Active())
		assert.False(t, token.IsConsumed())
		assert.Nil(t, token.BoundConsumerID())
		assert.Equal(t, &adminID, token.CreatedBy())
		assert.NotEmpty(t, token.SID())
		assert.Equal(t, 1, token.Version())
	})

	t.Run("should fail when trainer ID is zero", func(t *testing.T) {
		token, err := NewToken(0, 3, expiresAt, nil, nil)

		assert.Error(t, err)
		assert.Nil(t, token)
		assert.Contains(t, err.Error(), "trainer ID is required")
	})

	t.Run("should fail when quantity is zero", func(t *testing.T) {
		token, err := NewToken(1, 0, expiresAt, nil, nil)

		assert.Error(t, err)
		assert.Nil(t, token)
		assert.Contains(t, err.Error(), "quantity must be at least 1")
	})

	t.Run("should fail when expiration is in the past", func(t *testing.T) {
		token, err := NewToken(1, 3, time.Now().UTC().Add(-time.Hour), nil, nil)

		assert.Error(t, err)
		assert.Nil(t, token)
		assert.Contains(t, err.Error(), "expiration must be in the future")
	})
}

func TestTokenBind(t *testing.T) {
	now := time.Now().UTC()

	t.Run("should bind available token", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(24*time.Hour), nil, nil)
		require.NoError(t, err)

		err = token.Bind(42, now)

		assert.NoError(t, err)
		assert.True(t, token.IsConsumed())
		require.NotNil(t, token.BoundConsumerID())
		assert.Equal(t, uint(42), *token.BoundConsumerID())
		assert.NotNil(t, token.BoundAt())
		assert.Equal(t, 2, token.Version())
	})

	t.Run("should fail when already bound", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(24*time.Hour), nil, nil)
		require.NoError(t, err)
		require.NoError(t, token.Bind(42, now))

		err = token.Bind(43, now)

		assert.ErrorIs(t, err, ErrTokenAlreadyBound)
		assert.Equal(t, uint(42), *token.BoundConsumerID())
	})

	t.Run("should fail when expired", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(time.Minute), nil, nil)
		require.NoError(t, err)

		err = token.Bind(42, now.Add(time.Hour))

		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.False(t, token.IsConsumed())
	})
}

func TestTokenSplitOff(t *testing.T) {
	now := time.Now().UTC()
	expiresAt := now.Add(10 * 24 * time.Hour)

	t.Run("should conserve quantity across a split", func(t *testing.T) {
		token, err := NewToken(1, 3, expiresAt, nil, nil)
		require.NoError(t, err)

		piece, err := token.SplitOff(1, 42, now)

		assert.NoError(t, err)
		require.NotNil(t, piece)
		assert.Equal(t, uint(2), token.Quantity())
		assert.Equal(t, uint(1), piece.Quantity())
		assert.Equal(t, uint(3), token.Quantity()+piece.Quantity())
		assert.Equal(t, token.ExpiresAt(), piece.ExpiresAt())
		assert.Equal(t, token.TrainerID(), piece.TrainerID())
		assert.True(t, piece.IsConsumed())
		assert.Equal(t, uint(42), *piece.BoundConsumerID())
		assert.False(t, token.IsConsumed())
		assert.NotEqual(t, token.SID(), piece.SID())
	})

	t.Run("should fail when amount covers the whole token", func(t *testing.T) {
		token, err := NewToken(1, 2, expiresAt, nil, nil)
		require.NoError(t, err)

		piece, err := token.SplitOff(2, 42, now)

		assert.Error(t, err)
		assert.Nil(t, piece)
		assert.Equal(t, uint(2), token.Quantity())
	})

	t.Run("should fail on a consumed token", func(t *testing.T) {
		token, err := NewToken(1, 3, expiresAt, nil, nil)
		require.NoError(t, err)
		require.NoError(t, token.Bind(42, now))

		piece, err := token.SplitOff(1, 43, now)

		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.Nil(t, piece)
	})
}

func TestTokenRelease(t *testing.T) {
	now := time.Now().UTC()

	t.Run("should clear binding on an unexpired token", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(24*time.Hour), nil, nil)
		require.NoError(t, err)
		require.NoError(t, token.Bind(42, now))

		err = token.Release(now.Add(time.Hour))

		assert.NoError(t, err)
		assert.False(t, token.IsConsumed())
		assert.Nil(t, token.BoundAt())
		assert.True(t, token.Active())
	})

	t.Run("should be a no-op on an unbound token", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(24*time.Hour), nil, nil)
		require.NoError(t, err)
		version := token.Version()

		err = token.Release(now)

		assert.NoError(t, err)
		assert.Equal(t, version, token.Version())
	})

	t.Run("should deactivate an expired token instead of releasing", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(time.Minute), nil, nil)
		require.NoError(t, err)
		require.NoError(t, token.Bind(42, now))

		err = token.Release(now.Add(time.Hour))

		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.False(t, token.Active())
		assert.Nil(t, token.BoundConsumerID())
	})
}

func TestTokenMarkExpired(t *testing.T) {
	now := time.Now().UTC()

	t.Run("should deactivate and clear binding", func(t *testing.T) {
		token, err := NewToken(1, 2, now.Add(time.Minute), nil, nil)
		require.NoError(t, err)
		require.NoError(t, token.Bind(42, now))

		token.MarkExpired(now.Add(time.Hour))

		assert.False(t, token.Active())
		assert.Nil(t, token.BoundConsumerID())
		assert.Nil(t, token.BoundAt())
	})

	t.Run("should be idempotent", func(t *testing.T) {
		token, err := NewToken(1, 2, now.Add(time.Minute), nil, nil)
		require.NoError(t, err)

		token.MarkExpired(now.Add(time.Hour))
		version := token.Version()
		token.MarkExpired(now.Add(2 * time.Hour))

		assert.Equal(t, version, token.Version())
	})
}

func TestTokenAvailability(t *testing.T) {
	now := time.Now().UTC()

	t.Run("fresh token is available", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(24*time.Hour), nil, nil)
		require.NoError(t, err)

		assert.True(t, token.IsAvailable(now))
	})

	t.Run("bound token is not available", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(24*time.Hour), nil, nil)
		require.NoError(t, err)
		require.NoError(t, token.Bind(42, now))

		assert.False(t, token.IsAvailable(now))
	})

	t.Run("token past its window is not available", func(t *testing.T) {
		token, err := NewToken(1, 1, now.Add(time.Minute), nil, nil)
		require.NoError(t, err)

		assert.False(t, token.IsAvailable(now.Add(time.Hour)))
		assert.True(t, token.IsExpired(now.Add(time.Hour)))
	})
}
