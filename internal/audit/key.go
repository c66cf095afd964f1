package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey stretches a passphrase into a fixed 32-byte hex key for
// SQLCipher using HKDF-SHA256. Deriving rather than passing the
// passphrase through means every key reaching the database layer has
// uniform length and entropy spread.
func DeriveKey(passphrase string) string {
	h := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("galley-audit-db"))
	out := make([]byte, 32)
	if _, err := io.ReadFull(h, out); err != nil {
		// HKDF over SHA-256 cannot fail for a 32-byte read.
		panic(err)
	}
	return hex.EncodeToString(out)
}
