// Package auth implements the password lifecycle and the input format rules
// shared by the server handlers and the client.
package auth

import (
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor.
const PasswordCost = 10

// PasswordLength is the number of digits in a password.
const PasswordLength = 7

// HashPassword returns a salted bcrypt hash of plaintext.
func HashPassword(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// VerifyPassword reports whether plaintext matches hash. Malformed hashes
// never verify.
func VerifyPassword(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

// GeneratePassword returns a fresh random PasswordLength-digit password.
func GeneratePassword() (string, error) {
	p, err := common.RandomDigits(PasswordLength)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return p, nil
}
