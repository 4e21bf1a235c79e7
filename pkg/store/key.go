package store

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// KeySize is the length in bytes of a drive identity key.
const KeySize = 32

// Key is the stable content-addressing identifier of a drive: the BLAKE3
// hash of the drive's signing public key. It is immutable once created and
// is the sole token needed to reopen a drive on any peer that has it.
type Key [KeySize]byte

// NewKey generates a fresh drive identity: an ed25519 keypair is created and
// the identity is the BLAKE3 digest of the public key. The private half is
// owned by the replication layer; this daemon only needs the identity.
func NewKey() (Key, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Key{}, fmt.Errorf("generating drive keypair: %w", err)
	}
	return Key(blake3.Sum256(pub)), nil
}

// ParseKey decodes a 64-character hex identity key.
func ParseKey(s string) (Key, error) {
	var k Key
	if len(s) != hex.EncodedLen(KeySize) {
		return k, NewError(ErrInvalidPath, "", "identity key must be %d hex characters, got %d", hex.EncodedLen(KeySize), len(s))
	}
	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return k, NewError(ErrInvalidPath, "", "malformed identity key: %v", err)
	}
	return k, nil
}

// String returns the lowercase hex form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether the key is the all-zero value.
func (k Key) IsZero() bool {
	return k == Key{}
}

// MarshalText implements encoding.TextMarshaler. Keys serialize as their
// hex form so JSON and YAML carry them as strings.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
