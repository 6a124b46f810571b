package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevIssuer(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsInvalidEmail", func(t *testing.T) {
		issuer := NewDevIssuer(10*time.Minute, nil)
		err := issuer.SendMagicCode(ctx, "not-an-email")
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("IssuesAndVerifiesCode", func(t *testing.T) {
		issuer := NewDevIssuer(10*time.Minute, nil)
		require.NoError(t, issuer.SendMagicCode(ctx, "Jane@Example.com"))

		code, ok := issuer.PeekCode("jane@example.com")
		require.True(t, ok)
		require.Len(t, code, 6)

		ident, err := issuer.VerifyMagicCode(ctx, "jane@example.com", code)
		require.NoError(t, err)
		// Адрес нормализуется к нижнему регистру
		assert.Equal(t, "jane@example.com", ident.Email)
		assert.NotEmpty(t, ident.ID)
	})

	t.Run("CodeIsSingleUse", func(t *testing.T) {
		issuer := NewDevIssuer(10*time.Minute, nil)
		require.NoError(t, issuer.SendMagicCode(ctx, "jane@example.com"))

		code, _ := issuer.PeekCode("jane@example.com")
		_, err := issuer.VerifyMagicCode(ctx, "jane@example.com", code)
		require.NoError(t, err)

		_, err = issuer.VerifyMagicCode(ctx, "jane@example.com", code)
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("WrongCodeIsRejected", func(t *testing.T) {
		issuer := NewDevIssuer(10*time.Minute, nil)
		require.NoError(t, issuer.SendMagicCode(ctx, "jane@example.com"))

		_, err := issuer.VerifyMagicCode(ctx, "jane@example.com", "000000")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("ExpiredCodeIsRejected", func(t *testing.T) {
		issuer := NewDevIssuer(10*time.Minute, nil)
		now := time.Now()
		issuer.now = func() time.Time { return now }

		require.NoError(t, issuer.SendMagicCode(ctx, "jane@example.com"))
		code, _ := issuer.PeekCode("jane@example.com")

		issuer.now = func() time.Time { return now.Add(11 * time.Minute) }
		_, err := issuer.VerifyMagicCode(ctx, "jane@example.com", code)
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("IdentityIDIsStableAcrossSignIns", func(t *testing.T) {
		issuer := NewDevIssuer(10*time.Minute, nil)

		require.NoError(t, issuer.SendMagicCode(ctx, "jane@example.com"))
		code, _ := issuer.PeekCode("jane@example.com")
		first, err := issuer.VerifyMagicCode(ctx, "jane@example.com", code)
		require.NoError(t, err)

		require.NoError(t, issuer.SendMagicCode(ctx, "jane@example.com"))
		code, _ = issuer.PeekCode("jane@example.com")
		second, err := issuer.VerifyMagicCode(ctx, "jane@example.com", code)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("CleanupExpiredDropsStaleCodes", func(t *testing.T) {
		issuer := NewDevIssuer(10*time.Minute, nil)
		now := time.Now()
		issuer.now = func() time.Time { return now }

		require.NoError(t, issuer.SendMagicCode(ctx, "stale@example.com"))
		require.NoError(t, issuer.SendMagicCode(ctx, "fresh@example.com"))

		issuer.now = func() time.Time { return now.Add(11 * time.Minute) }
		// Продлеваем код второго адреса перед очисткой
		require.NoError(t, issuer.SendMagicCode(ctx, "fresh@example.com"))
		issuer.CleanupExpired()

		_, ok := issuer.PeekCode("stale@example.com")
		assert.False(t, ok)
		_, ok = issuer.PeekCode("fresh@example.com")
		assert.True(t, ok)
	})
}
