// Package cryptox wraps password hashing for admin accounts.
package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used when provisioning admin accounts.
const DefaultCost = 12

// dummyHash is compared against when the username is unknown so that both
// failure paths spend comparable time in bcrypt.
var dummyHash = mustHash("not-a-real-password", bcrypt.MinCost+6)

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password []byte, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword(password, cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash. Malformed hashes are a
// mismatch, never an error for the caller.
func CheckPassword(hash string, password []byte) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), password)
	return err == nil
}

// BurnPasswordCheck performs a comparison that always fails.
func BurnPasswordCheck(password []byte) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, password)
}

// IsMismatch reports whether err is the bcrypt mismatch error.
func IsMismatch(err error) bool {
	return errors.Is(err, bcrypt.ErrMismatchedHashAndPassword)
}

func mustHash(pw string, cost int) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		panic(err)
	}
	return h
}
