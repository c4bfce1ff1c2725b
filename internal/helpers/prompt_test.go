package helpers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword([]byte("short")), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword([]byte("has space in it")), ErrPasswordInvalidChar)
	assert.ErrorIs(t, ValidatePassword([]byte("tab\tinside!")), ErrPasswordInvalidChar)
	assert.NoError(t, ValidatePassword([]byte("c0rrect-h0rse!")))
}

func TestZeroBytes(t *testing.T) {
	b := []byte("secret")
	ZeroBytes(b)
	assert.Equal(t, make([]byte, 6), b)
}

func TestPromptLine(t *testing.T) {
	var out bytes.Buffer

	assert.Equal(t, "0x267", promptLine(strings.NewReader("0x267\n"), &out, "Chain", "0xaa36a7"))
	assert.Equal(t, "Chain [0xaa36a7]: ", out.String())

	assert.Equal(t, "0xaa36a7", promptLine(strings.NewReader("\n"), &out, "Chain", "0xaa36a7"))
	assert.Equal(t, "0xaa36a7", promptLine(strings.NewReader(""), &out, "Chain", "0xaa36a7"))
	assert.Equal(t, "no newline", promptLine(strings.NewReader("no newline"), &out, "Label", ""))
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "Send?"))
	assert.True(t, confirm(strings.NewReader("YES\n"), &out, "Send?"))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "Send?"))
	assert.False(t, confirm(strings.NewReader("nope\n"), &out, "Send?"))
}
