package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChallengeStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	require.NoError(t, store.Put(ctx, "a", 90, time.Minute))

	angle, ok, err := store.Take(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90, angle)

	// consumed
	_, ok, err = store.Take(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "b", 45, -time.Second))
	_, ok, err = store.Take(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCaptchaVerifyRotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()
	svc, err := NewCaptchaServiceRotate(store, time.Minute, 5, 160)
	require.NoError(t, err)

	ch, err := svc.GenerateRotate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.NotEmpty(t, ch.MasterImageBase64)
	assert.NotEmpty(t, ch.ThumbImageBase64)

	t.Run("unknown challenge", func(t *testing.T) {
		assert.False(t, svc.VerifyRotate(ctx, "missing", 0))
		assert.False(t, svc.VerifyRotate(ctx, "", 0))
	})

	t.Run("challenge is single use", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "known", 120, time.Minute))
		assert.True(t, svc.VerifyRotate(ctx, "known", 121.4))
		assert.False(t, svc.VerifyRotate(ctx, "known", 120))
	})

	t.Run("angle outside tolerance", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "far", 120, time.Minute))
		assert.False(t, svc.VerifyRotate(ctx, "far", 200))
	})
}

func TestNewCaptchaServiceRequiresStore(t *testing.T) {
	_, err := NewCaptchaServiceRotate(nil, time.Minute, 5, 160)
	assert.Error(t, err)
}
