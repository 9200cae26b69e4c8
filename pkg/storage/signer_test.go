package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerSignAndVerify(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("uploads/2026/01/unit1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	key, parsedExpiry, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "uploads/2026/01/unit1.pdf", key)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignerExpired(t *testing.T) {
	signer := NewSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("uploads/unit1.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, err = signer.Verify(token)
	require.Error(t, err)
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Sign("uploads/unit1.pdf")
	require.NoError(t, err)

	_, _, err = signer.Verify(token + "x")
	require.Error(t, err)

	other := NewSigner("different-secret", time.Hour)
	_, _, err = other.Verify(token)
	require.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	require.Equal(t, "Unit 1_ Signals_", SanitizeName(`Unit 1: Signals?`))
	require.Equal(t, "unit1.pdf", SanitizeName(`..\..\unit1.pdf`))
	require.Equal(t, "file", SanitizeName("   "))
}
