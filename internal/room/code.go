package room

import (
	"crypto/rand"
	"encoding/hex"
	mrand "math/rand/v2"
	"strings"
)

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 6

	// Attempts before giving up on finding an unused code. With a 36^6 code
	// space this only trips when something is badly misconfigured.
	maxCodeAttempts = 100
)

func randomCode() string {
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[mrand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// newAdminSecret mints the bearer token that grants admin rights over a room.
func newAdminSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// NormalizeCode makes room codes case-insensitive for lookups.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
