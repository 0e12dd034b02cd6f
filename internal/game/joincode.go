package game

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// JoinCodeAlphabet omits characters that are easy to confuse when read aloud
// or off a screen (0/O, 1/I/L).
const JoinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	JoinCodeLength   = 6
	joinCodeAttempts = 10
)

// NewJoinCode returns a random join code.
func NewJoinCode() string {
	size := big.NewInt(int64(len(JoinCodeAlphabet)))
	var b strings.Builder
	b.Grow(JoinCodeLength)
	for range JoinCodeLength {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			panic(err)
		}
		b.WriteByte(JoinCodeAlphabet[n.Int64()])
	}
	return b.String()
}

// NormalizeJoinCode upper-cases and trims a code typed by a player.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
