package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVerificationCode(t *testing.T) {
	code, hash, err := newVerificationCode()
	require.NoError(t, err)
	require.Len(t, code, verificationCodeLength)
	require.NotContains(t, hash, code)

	ok, err := verifyPendingCode(code, hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = verifyPendingCode("00000000", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFormatCode(t *testing.T) {
	require.Equal(t, "1234-5678", FormatCode("12345678"))
	// Unexpected lengths pass through untouched.
	require.Equal(t, "123", FormatCode("123"))
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "12345678", normalizeCode(" 1234-5678 "))
	require.Equal(t, "12345678", normalizeCode("1234 5678"))
	require.Equal(t, "12345678", normalizeCode("12345678"))
}

func TestVerifyPendingCode_AcceptsFormattedInput(t *testing.T) {
	code, hash, err := newVerificationCode()
	require.NoError(t, err)

	ok, err := verifyPendingCode(FormatCode(code), hash)
	require.NoError(t, err)
	require.True(t, ok)
}
