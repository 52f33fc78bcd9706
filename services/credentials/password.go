// Package credentials hashes and verifies user passwords with bcrypt.
package credentials

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for new digests.
var Cost = bcrypt.DefaultCost

// Hash returns a salted bcrypt digest of plaintext.
func Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest is a
// mismatch.
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
