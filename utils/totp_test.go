package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPRoundTrip(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(url, "otpauth://totp/"))

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	valid, err := VerifyTOTP(secret, code)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = VerifyTOTP(secret, "000000")
	require.NoError(t, err)
	assert.False(t, valid)
}
