package cryptoops

import (
	"bytes"
	"testing"
)

// TestFrameRoundTrip is scenario 1 from spec.md §8: pack/unpack.
func TestFrameRoundTrip(t *testing.T) {
	f := Frame{
		Kind:    KindHello,
		Payload: []byte{0, 0, 0},
	}
	encoded := f.Encode(nil)
	if len(encoded) != 60 {
		t.Fatalf("encoded length = %d, want 60", len(encoded))
	}

	decoded, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if decoded.Id != f.Id || decoded.Nonce != f.Nonce || decoded.Kind != f.Kind {
		t.Fatalf("decoded header mismatch: %+v vs %+v", decoded, f)
	}
	if !bytes.Equal(decoded.Payload, f.Payload) {
		t.Fatalf("decoded payload = %v, want %v", decoded.Payload, f.Payload)
	}
}

// TestFrameRoundTripLaw checks the general round-trip law across kinds and
// payload sizes (spec.md §8).
func TestFrameRoundTripLaw(t *testing.T) {
	kinds := []FrameKind{KindHello, KindWelcome, KindInitiate, KindReady, KindRequest, KindResponse, KindNotification, KindTermination}
	payloads := [][]byte{nil, {}, []byte("x"), bytes.Repeat([]byte{0xAB}, 300)}

	for _, kind := range kinds {
		for _, payload := range payloads {
			var id PublicKey
			var nonce Nonce
			copy(id[:], bytes.Repeat([]byte{byte(kind)}, 32))
			copy(nonce[:], bytes.Repeat([]byte{byte(kind) + 1}, 24))

			f := Frame{Id: id, Nonce: nonce, Kind: kind, Payload: payload}
			encoded := f.Encode(nil)
			if len(encoded) != HeaderSize+len(payload) {
				t.Fatalf("kind %v: encoded length = %d, want %d", kind, len(encoded), HeaderSize+len(payload))
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("kind %v: DecodeFrame: %v", kind, err)
			}
			if decoded.Id != f.Id || decoded.Nonce != f.Nonce || decoded.Kind != f.Kind {
				t.Fatalf("kind %v: header mismatch", kind)
			}
			if !bytes.Equal(decoded.Payload, payload) {
				t.Fatalf("kind %v: payload mismatch: %v vs %v", kind, decoded.Payload, payload)
			}
		}
	}
}

// TestDecodeFrameIncomplete is scenario 2 from spec.md §8.
func TestDecodeFrameIncomplete(t *testing.T) {
	_, err := DecodeFrame([]byte{1, 2, 3})
	if err != ErrIncompleteFrame {
		t.Fatalf("err = %v, want ErrIncompleteFrame", err)
	}
}

// TestDecodeFrameBadKind is scenario 3 from spec.md §8.
func TestDecodeFrameBadKind(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[56] = 13
	_, err := DecodeFrame(buf)
	if err != ErrBadFrame {
		t.Fatalf("err = %v, want ErrBadFrame", err)
	}
}

func TestDecodeFrameExactlyHeaderSize(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[56] = byte(KindTermination)
	f, err := DecodeFrame(buf)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if len(f.Payload) != 0 {
		t.Fatalf("payload = %v, want empty", f.Payload)
	}
}

func TestParseFrameKind(t *testing.T) {
	for _, b := range []byte{1, 2, 3, 4, 5, 6, 7, 255} {
		if _, ok := ParseFrameKind(b); !ok {
			t.Errorf("ParseFrameKind(%d) = false, want true", b)
		}
	}
	for _, b := range []byte{0, 8, 13, 100, 254} {
		if _, ok := ParseFrameKind(b); ok {
			t.Errorf("ParseFrameKind(%d) = true, want false", b)
		}
	}
}
