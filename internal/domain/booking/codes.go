package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// CodeGenerator produces the cosmetic destination code and the pickup OTP.
// It is an interface so tests can inject deterministic values.
type CodeGenerator interface {
	// DestinationCode returns the two initial letters of the destination
	// name plus a random two-digit suffix. Collisions are allowed.
	DestinationCode(destinationName string) (string, error)
	// OTP returns a random four-digit pickup code.
	OTP() (string, error)
}

// RandomCodeGenerator is the production CodeGenerator backed by crypto/rand.
type RandomCodeGenerator struct{}

// NewRandomCodeGenerator creates the production code generator.
func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{}
}

// DestinationCode builds a code like "RA47" for "Railway Station".
func (RandomCodeGenerator) DestinationCode(destinationName string) (string, error) {
	prefix := letterPrefix(destinationName)
	suffix, err := randomDigits(2)
	if err != nil {
		return "", fmt.Errorf("failed to generate destination code: %w", err)
	}
	return prefix + suffix, nil
}

// OTP returns a four-digit code, zero-padded.
func (RandomCodeGenerator) OTP() (string, error) {
	otp, err := randomDigits(4)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return otp, nil
}

// letterPrefix takes the first two letters of the name, uppercased,
// skipping anything that is not a letter. Short names pad with "X".
func letterPrefix(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) {
			sb.WriteRune(unicode.ToUpper(r))
			if sb.Len() >= 2 {
				break
			}
		}
	}
	for sb.Len() < 2 {
		sb.WriteByte('X')
	}
	return sb.String()
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
