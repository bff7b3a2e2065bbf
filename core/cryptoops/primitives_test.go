package cryptoops

import (
	"bytes"
	"testing"
)

func TestInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Idempotent: calling again must not fail or hang.
	if err := Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestGenerateKeyPairDistinct(t *testing.T) {
	a, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if a.Public == b.Public {
		t.Fatal("two generated keypairs share a public key")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	nonce, _ := GenerateNonce()

	plaintext := []byte("the quick brown fox")
	ciphertext := Seal(plaintext, nonce, bob.Public, alice.Secret)
	if len(ciphertext) != len(plaintext)+16 {
		t.Fatalf("ciphertext length = %d, want %d", len(ciphertext), len(plaintext)+16)
	}

	opened, err := Open(ciphertext, nonce, alice.Public, bob.Secret)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("opened = %q, want %q", opened, plaintext)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	nonce, _ := GenerateNonce()

	ciphertext := Seal([]byte("hello"), nonce, bob.Public, alice.Secret)
	ciphertext[0] ^= 0xFF

	_, err := Open(ciphertext, nonce, alice.Public, bob.Secret)
	if err != ErrDecryptionFailed {
		t.Fatalf("err = %v, want ErrDecryptionFailed", err)
	}
}

func TestPrecomputeCommutative(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	fromAlice := Precompute(bob.Public, alice.Secret)
	fromBob := Precompute(alice.Public, bob.Secret)

	if fromAlice != fromBob {
		t.Fatal("precomputed shared keys differ between peers")
	}
}

func TestSealOpenPrecomputedRoundTrip(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	shared := Precompute(bob.Public, alice.Secret)
	nonce, _ := GenerateNonce()

	plaintext := []byte("precomputed message")
	ciphertext := SealPrecomputed(plaintext, nonce, shared)

	opened, err := OpenPrecomputed(ciphertext, nonce, shared)
	if err != nil {
		t.Fatalf("OpenPrecomputed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("opened = %q, want %q", opened, plaintext)
	}
}

func TestGenerateNonceDistinct(t *testing.T) {
	a, _ := GenerateNonce()
	b, _ := GenerateNonce()
	if a == b {
		t.Fatal("two generated nonces are equal")
	}
}

func TestKeyPairZero(t *testing.T) {
	kp, _ := GenerateKeyPair()
	kp.Zero()
	var zero SecretKey
	if kp.Secret != zero {
		t.Fatal("Zero did not clear the secret key")
	}
}
