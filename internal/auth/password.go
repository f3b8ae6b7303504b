package auth

import (
	"crypto/sha512"

	"golang.org/x/crypto/bcrypt"
)

// Passwords are pre-hashed with SHA-512 before bcrypt. bcrypt only considers
// the first 72 bytes of its input; the pre-hash keeps every character of an
// arbitrarily long password significant while the stored digest stays
// fixed-size.
func digest(password string) []byte {
	sum := sha512.Sum512([]byte(password))
	return sum[:]
}

// HashPassword derives the stored credential for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(digest(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), digest(password)) == nil
}
