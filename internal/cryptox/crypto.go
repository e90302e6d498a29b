// Package cryptox derives and checks password verifiers.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/libcirc/internal/common"
)

const (
	SaltSize     = 16
	VerifierSize = 32
)

// NewSalt returns a fresh random salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// DeriveVerifier stretches password with argon2id. Only the result is ever
// stored.
func DeriveVerifier(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, VerifierSize)
}

// CheckPassword derives a verifier from password and compares it to the
// stored one in constant time.
func CheckPassword(password, salt, verifier []byte) bool {
	candidate := DeriveVerifier(password, salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(verifier, candidate) == 1
}
