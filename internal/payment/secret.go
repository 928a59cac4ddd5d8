package payment

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const hashPrefix = "$argon2id$"

const (
	argonIterations  = 1
	argonMemory      = 64 * 1024
	argonParallelism = 4
	argonKeyLength   = 32
	argonSaltLength  = 16
)

// HashSecret encodes password as "$argon2id$<salt>$<hash>" for storage at rest.
func HashSecret(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	return hashPrefix +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(hash), nil
}

// IsHashed reports whether stored was produced by HashSecret.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, hashPrefix)
}

// VerifySecret compares given against a stored secret, plain or hashed.
// Plain secrets must match exactly.
func VerifySecret(given, stored string) bool {
	if !IsHashed(stored) {
		return subtle.ConstantTimeCompare([]byte(given), []byte(stored)) == 1
	}

	parts := strings.Split(strings.TrimPrefix(stored, hashPrefix), "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(expected) == 0 {
		return false
	}
	computed := argon2.IDKey([]byte(given), salt, argonIterations, argonMemory, argonParallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
