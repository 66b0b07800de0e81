package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"unicode"
)

// LinkCodeLen: длина кода привязки Telegram в HEX-символах.
const LinkCodeLen = 32

// NewLinkCode returns a one-time Telegram link code: 16 random bytes as upper-case hex.
func NewLinkCode() (string, error) {
	b := make([]byte, LinkCodeLen/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NormalizeLinkCode cleans up a code pasted into the chat: quotes and
// punctuation are dropped, case is ignored. Reports false unless exactly
// LinkCodeLen hex digits remain.
func NormalizeLinkCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`“”«»<>.,;:()[]{}\\")
	s = strings.ToUpper(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Hex_Digit, r) {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != LinkCodeLen {
		return "", false
	}
	return code, true
}
