package cryptoops

// HeaderSize is the fixed size in bytes of every frame's header: a 32-byte
// id, a 24-byte nonce, and a 1-byte kind tag.
const HeaderSize = 57

// FrameKind tags the contents of a Frame's payload.
type FrameKind byte

const (
	KindHello        FrameKind = 1
	KindWelcome      FrameKind = 2
	KindInitiate     FrameKind = 3
	KindReady        FrameKind = 4
	KindRequest      FrameKind = 5
	KindResponse     FrameKind = 6
	KindNotification FrameKind = 7
	KindTermination  FrameKind = 255
)

// String renders a human-readable name for logging; never used on the
// core's hot path.
func (k FrameKind) String() string {
	switch k {
	case KindHello:
		return "Hello"
	case KindWelcome:
		return "Welcome"
	case KindInitiate:
		return "Initiate"
	case KindReady:
		return "Ready"
	case KindRequest:
		return "Request"
	case KindResponse:
		return "Response"
	case KindNotification:
		return "Notification"
	case KindTermination:
		return "Termination"
	default:
		return "Unknown"
	}
}

// ParseFrameKind validates b as a recognized FrameKind.
func ParseFrameKind(b byte) (FrameKind, bool) {
	switch FrameKind(b) {
	case KindHello, KindWelcome, KindInitiate, KindReady, KindRequest, KindResponse, KindNotification, KindTermination:
		return FrameKind(b), true
	default:
		return 0, false
	}
}

// Frame is the on-wire unit of transmission: a fixed 57-byte header
// followed by an opaque payload. During and after the handshake, Id is
// the client's ephemeral public key and doubles as the session id.
type Frame struct {
	Id      PublicKey
	Nonce   Nonce
	Kind    FrameKind
	Payload []byte
}

// Length returns the total encoded length of f: HeaderSize + len(f.Payload).
func (f *Frame) Length() int {
	return HeaderSize + len(f.Payload)
}

// Encode appends the canonical big-endian wire encoding of f to dst and
// returns the extended slice. No length prefix is emitted — that is the
// stream framer's responsibility (spec.md §4.2).
func (f *Frame) Encode(dst []byte) []byte {
	dst = append(dst, f.Id[:]...)
	dst = append(dst, f.Nonce[:]...)
	dst = append(dst, byte(f.Kind))
	dst = append(dst, f.Payload...)
	return dst
}

// DecodeFrame parses a Frame from b. The returned Frame's Payload aliases
// b; callers that retain the frame beyond the lifetime of b must copy it.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < HeaderSize {
		return Frame{}, ErrIncompleteFrame
	}

	var f Frame
	copy(f.Id[:], b[0:32])
	copy(f.Nonce[:], b[32:56])

	kind, ok := ParseFrameKind(b[56])
	if !ok {
		return Frame{}, ErrBadFrame
	}
	f.Kind = kind

	if len(b) > HeaderSize {
		f.Payload = b[HeaderSize:]
	}

	return f, nil
}
