package cryptoops

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"
)

// KeySize is the length in bytes of a box public or secret key.
const KeySize = 32

// PublicKey is a 32-byte X25519 public key.
type PublicKey [KeySize]byte

// SecretKey is a 32-byte X25519 secret key.
type SecretKey [KeySize]byte

// KeyPair is a public/secret key pair over the box primitive's key space.
// A KeyPair may serve as either a long-term identity key or a per-session
// ephemeral key; the type carries no indication of which.
type KeyPair struct {
	Public PublicKey
	Secret SecretKey
}

// GenerateKeyPair creates a new KeyPair from the system CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: *pub, Secret: *sec}, nil
}

// Zero overwrites the secret key material with zeros. Callers should call
// this once a KeyPair's secret is no longer needed, per spec.md §5's
// resource discipline.
func (kp *KeyPair) Zero() {
	for i := range kp.Secret {
		kp.Secret[i] = 0
	}
}
