package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("zhang_san-3"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("has space"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 51)))
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("13800138000"))
	assert.NoError(t, ValidatePhone("+8613800138000"))
	assert.Error(t, ValidatePhone("123"))
	assert.Error(t, ValidatePhone("phone"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.Error(t, ValidatePassword("short"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("he\x00llo\x1f"))
	assert.Equal(t, "路面坑洞", SanitizeString("路面坑洞"))
}

func TestGenerateTicketNo(t *testing.T) {
	no := GenerateTicketNo(42)

	assert.True(t, strings.HasPrefix(no, "T"))
	// T + 14 digit timestamp + 6 digit report id + 6 char suffix.
	assert.Len(t, no, 1+14+6+6)
	assert.Contains(t, no, "000042")

	assert.NotEqual(t, no, GenerateTicketNo(42))
}
