package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

var ten = big.NewInt(10)

// GenerateNumericCode returns a uniformly random string of decimal digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length %d", length)
	}
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// HashOTP returns the hex SHA-256 digest stored in place of the code.
func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// OTPMatches compares a submitted code against a stored digest in constant time.
func OTPMatches(submitted, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashOTP(submitted)), []byte(storedHash)) == 1
}
