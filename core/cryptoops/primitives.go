package cryptoops

import (
	"crypto/rand"
	"io"
	"sync"

	"golang.org/x/crypto/nacl/box"
)

// NonceSize is the length in bytes of a box nonce.
const NonceSize = 24

// Nonce is a fresh-per-frame value, also usable by higher layers as a
// request correlation id (spec.md §9). The core never reuses a nonce
// under the same sealing key.
type Nonce [NonceSize]byte

// SharedKey is a symmetric key precomputed once from two box keypairs via
// Diffie-Hellman, suitable for many subsequent seal/open operations.
type SharedKey [KeySize]byte

var initOnce sync.Once
var initErr error

// Init seeds the process-level CSPRNG path exercised by this package. It is
// idempotent and safe to call from multiple goroutines; the underlying
// nacl/box primitives read crypto/rand directly and need no explicit seed,
// so this only probes that entropy is actually available before the first
// real key is generated.
func Init() error {
	initOnce.Do(func() {
		var probe [NonceSize]byte
		if _, err := io.ReadFull(rand.Reader, probe[:]); err != nil {
			initErr = ErrInitializationFailed
		}
	})
	return initErr
}

// GenerateNonce returns a fresh, unpredictable 24-byte nonce.
func GenerateNonce() (Nonce, error) {
	var n Nonce
	if _, err := io.ReadFull(rand.Reader, n[:]); err != nil {
		return Nonce{}, err
	}
	return n, nil
}

// Seal authenticates and encrypts plaintext for theirPK, using ourSK and
// nonce. len(ciphertext) == len(plaintext) + box.Overhead.
func Seal(plaintext []byte, nonce Nonce, theirPK PublicKey, ourSK SecretKey) []byte {
	return box.Seal(nil, plaintext, (*[NonceSize]byte)(&nonce), (*[KeySize]byte)(&theirPK), (*[KeySize]byte)(&ourSK))
}

// Open authenticates and decrypts ciphertext sealed by theirSK for ourPK.
func Open(ciphertext []byte, nonce Nonce, theirPK PublicKey, ourSK SecretKey) ([]byte, error) {
	plaintext, ok := box.Open(nil, ciphertext, (*[NonceSize]byte)(&nonce), (*[KeySize]byte)(&theirPK), (*[KeySize]byte)(&ourSK))
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Precompute derives the symmetric key shared by theirPK and ourSK. The
// operation is commutative: Precompute(A.pk, B.sk) == Precompute(B.pk, A.sk).
func Precompute(theirPK PublicKey, ourSK SecretKey) SharedKey {
	var shared SharedKey
	box.Precompute((*[KeySize]byte)(&shared), (*[KeySize]byte)(&theirPK), (*[KeySize]byte)(&ourSK))
	return shared
}

// SealPrecomputed is Seal using a key already derived via Precompute.
func SealPrecomputed(plaintext []byte, nonce Nonce, key SharedKey) []byte {
	return box.SealAfterPrecomputation(nil, plaintext, (*[NonceSize]byte)(&nonce), (*[KeySize]byte)(&key))
}

// OpenPrecomputed is Open using a key already derived via Precompute.
func OpenPrecomputed(ciphertext []byte, nonce Nonce, key SharedKey) ([]byte, error) {
	plaintext, ok := box.OpenAfterPrecomputation(nil, ciphertext, (*[NonceSize]byte)(&nonce), (*[KeySize]byte)(&key))
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
