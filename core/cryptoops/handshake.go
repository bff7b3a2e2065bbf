package cryptoops

import (
	"crypto/subtle"
	"time"
)

// Handshake and session lifetime constants (spec.md §3).
const (
	HandshakeDuration = 3 * time.Minute
	SessionDuration   = 55 * time.Minute
)

// NullBytes is the Hello payload: 256 zero bytes. Padding the Hello past
// the size of the Welcome response defeats source-address amplification
// (spec.md §4.3.2) — do not shrink this.
var NullBytes = make([]byte, 256)

// ReadyPayload is the fixed plaintext sealed inside a Ready frame.
var ReadyPayload = []byte("My body is ready")

// initiateBodySize is the exact plaintext size of an Initiate box: 32-byte
// client identity key + 24-byte vouch nonce + 48-byte vouch box.
const initiateBodySize = 104

// minInitiateBodySize is the spec's hard floor; lengths below this are
// always rejected. Lengths between this and initiateBodySize are also
// rejected — spec.md §4.3.3 "SHOULD reject length != 104" is implemented
// as a hard requirement.
const minInitiateBodySize = 60

// SessionState is the handshake object's position in its state machine.
// Transitions are monotonic along the success path; any cryptographic or
// structural failure moves to StateError, which is terminal. The one
// exception is ServerHandshakeSession.ValidateInitiate, which reports its
// failures without changing state.
type SessionState int

const (
	StateFresh SessionState = iota
	StateInitiated
	StateReady
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateInitiated:
		return "Initiated"
	case StateReady:
		return "Ready"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ClientHandshakeSession drives the four-message handshake from the
// initiator's side. A single instance is not safe for concurrent mutation
// (spec.md §5); distinct instances are independent.
type ClientHandshakeSession struct {
	localIdentity KeyPair
	localSession  KeyPair

	remoteIdentityKey PublicKey
	remoteSessionKey  PublicKey

	createdAt time.Time
	expireAt  time.Time
	state     SessionState

	now func() time.Time
}

// NewClientHandshakeSession creates a Fresh client handshake session. A new
// ephemeral keypair is generated for this session; localIdentity is passed
// by value and the session keeps its own copy of it.
func NewClientHandshakeSession(localIdentity KeyPair, remoteIdentityKey PublicKey) (*ClientHandshakeSession, error) {
	session, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &ClientHandshakeSession{
		localIdentity:     localIdentity,
		localSession:      session,
		remoteIdentityKey: remoteIdentityKey,
		createdAt:         now,
		expireAt:          now.Add(HandshakeDuration),
		state:             StateFresh,
		now:               time.Now,
	}, nil
}

// State returns the session's current SessionState.
func (c *ClientHandshakeSession) State() SessionState {
	return c.state
}

// IsExpired reports whether the handshake has outlived HandshakeDuration.
// Expired iff now >= expire_at (spec.md §9).
func (c *ClientHandshakeSession) IsExpired() bool {
	return !c.now().Before(c.expireAt)
}

// MakeHello produces the Hello frame: requires StateFresh, transitions to
// StateInitiated.
func (c *ClientHandshakeSession) MakeHello() (Frame, error) {
	if c.state != StateFresh {
		return Frame{}, ErrInvalidSessionState
	}
	if c.IsExpired() {
		c.state = StateError
		return Frame{}, ErrExpiredSession
	}

	nonce, err := GenerateNonce()
	if err != nil {
		c.state = StateError
		return Frame{}, err
	}

	payload := Seal(NullBytes, nonce, c.remoteIdentityKey, c.localSession.Secret)

	c.state = StateInitiated
	return Frame{
		Id:      c.localSession.Public,
		Nonce:   nonce,
		Kind:    KindHello,
		Payload: payload,
	}, nil
}

// MakeInitiate validates welcome and produces the Initiate frame: requires
// StateInitiated and welcome.Kind == KindWelcome.
func (c *ClientHandshakeSession) MakeInitiate(welcome Frame) (Frame, error) {
	if c.state != StateInitiated {
		return Frame{}, ErrInvalidSessionState
	}
	if welcome.Kind != KindWelcome {
		c.state = StateError
		return Frame{}, ErrInvalidWelcomeFrame
	}
	if c.IsExpired() {
		c.state = StateError
		return Frame{}, ErrExpiredSession
	}

	plaintext, err := Open(welcome.Payload, welcome.Nonce, c.remoteIdentityKey, c.localSession.Secret)
	if err != nil {
		c.state = StateError
		return Frame{}, ErrDecryptionFailed
	}
	if len(plaintext) != KeySize {
		c.state = StateError
		return Frame{}, ErrInvalidPublicKey
	}
	copy(c.remoteSessionKey[:], plaintext)

	vouchNonce, err := GenerateNonce()
	if err != nil {
		c.state = StateError
		return Frame{}, err
	}
	vouchBox := Seal(c.localSession.Public[:], vouchNonce, c.remoteSessionKey, c.localIdentity.Secret)

	body := make([]byte, 0, initiateBodySize)
	body = append(body, c.localIdentity.Public[:]...)
	body = append(body, vouchNonce[:]...)
	body = append(body, vouchBox...)

	nonce, err := GenerateNonce()
	if err != nil {
		c.state = StateError
		return Frame{}, err
	}
	payload := Seal(body, nonce, c.remoteSessionKey, c.localSession.Secret)

	return Frame{
		Id:      c.localSession.Public,
		Nonce:   nonce,
		Kind:    KindInitiate,
		Payload: payload,
	}, nil
}

// ReadReady validates ready and, on success, consumes the handshake session
// into an EstablishedSession: requires StateInitiated and
// ready.Kind == KindReady.
func (c *ClientHandshakeSession) ReadReady(ready Frame) (*EstablishedSession, error) {
	if c.state != StateInitiated {
		return nil, ErrInvalidSessionState
	}
	if ready.Kind != KindReady {
		c.state = StateError
		return nil, ErrInvalidReadyFrame
	}
	if c.IsExpired() {
		c.state = StateError
		return nil, ErrExpiredSession
	}

	shared := Precompute(c.remoteSessionKey, c.localSession.Secret)

	plaintext, err := OpenPrecomputed(ready.Payload, ready.Nonce, shared)
	if err != nil {
		c.state = StateError
		return nil, ErrDecryptionFailed
	}
	if subtle.ConstantTimeCompare(plaintext, ReadyPayload) != 1 {
		c.state = StateError
		return nil, ErrInvalidReadyFrame
	}

	c.state = StateReady
	established := newEstablishedSession(c.localSession.Public, shared, c.now)
	c.localSession.Zero()
	return established, nil
}

// ServerHandshakeSession drives the four-message handshake from the
// responder's side. localIdentity is referenced, not copied, and is
// commonly shared across every concurrent incoming session (spec.md §5).
type ServerHandshakeSession struct {
	localIdentity *KeyPair
	localSession  KeyPair

	remoteSessionKey  PublicKey
	remoteIdentityKey PublicKey

	createdAt time.Time
	expireAt  time.Time
	state     SessionState

	now func() time.Time
}

// NewServerHandshakeSession creates a Fresh server handshake session.
// remoteSessionKey comes from the incoming Hello frame's Id field.
func NewServerHandshakeSession(localIdentity *KeyPair, remoteSessionKey PublicKey) (*ServerHandshakeSession, error) {
	session, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &ServerHandshakeSession{
		localIdentity:    localIdentity,
		localSession:     session,
		remoteSessionKey: remoteSessionKey,
		createdAt:        now,
		expireAt:         now.Add(HandshakeDuration),
		state:            StateFresh,
		now:              time.Now,
	}, nil
}

// State returns the session's current SessionState.
func (s *ServerHandshakeSession) State() SessionState {
	return s.state
}

// IsExpired reports whether the handshake has outlived HandshakeDuration.
func (s *ServerHandshakeSession) IsExpired() bool {
	return !s.now().Before(s.expireAt)
}

// MakeWelcome validates hello and produces the Welcome frame: requires
// StateFresh and hello.Kind == KindHello.
func (s *ServerHandshakeSession) MakeWelcome(hello Frame) (Frame, error) {
	if s.state != StateFresh {
		return Frame{}, ErrInvalidSessionState
	}
	if hello.Kind != KindHello {
		s.state = StateError
		return Frame{}, ErrInvalidHelloFrame
	}
	if s.IsExpired() {
		s.state = StateError
		return Frame{}, ErrExpiredSession
	}

	plaintext, err := Open(hello.Payload, hello.Nonce, s.remoteSessionKey, s.localIdentity.Secret)
	if err != nil {
		s.state = StateError
		return Frame{}, ErrDecryptionFailed
	}
	if len(plaintext) != len(NullBytes) {
		s.state = StateError
		return Frame{}, ErrInvalidHelloFrame
	}

	nonce, err := GenerateNonce()
	if err != nil {
		s.state = StateError
		return Frame{}, err
	}
	payload := Seal(s.localSession.Public[:], nonce, hello.Id, s.localIdentity.Secret)

	s.state = StateInitiated
	return Frame{
		Id:      hello.Id,
		Nonce:   nonce,
		Kind:    KindWelcome,
		Payload: payload,
	}, nil
}

// ValidateInitiate validates initiate per spec.md §4.3.3 and returns the
// client's long-term public key. It does not mutate state; the caller is
// expected to consult identity policy before calling MakeReady.
func (s *ServerHandshakeSession) ValidateInitiate(initiate Frame) (PublicKey, error) {
	if s.state != StateInitiated {
		return PublicKey{}, ErrInvalidSessionState
	}
	if initiate.Kind != KindInitiate {
		return PublicKey{}, ErrInvalidInitiateFrame
	}

	plaintext, err := Open(initiate.Payload, initiate.Nonce, initiate.Id, s.localSession.Secret)
	if err != nil {
		return PublicKey{}, ErrDecryptionFailed
	}
	if len(plaintext) < minInitiateBodySize || len(plaintext) != initiateBodySize {
		return PublicKey{}, ErrInvalidInitiateFrame
	}

	var clientIdentityKey PublicKey
	copy(clientIdentityKey[:], plaintext[0:32])

	var vouchNonce Nonce
	copy(vouchNonce[:], plaintext[32:56])
	vouchBox := plaintext[56:104]

	vouchPlaintext, err := Open(vouchBox, vouchNonce, clientIdentityKey, s.localSession.Secret)
	if err != nil {
		return PublicKey{}, ErrInvalidInitiateFrame
	}

	// Mandated fix (spec.md §9): both conditions must hold. The source's
	// OR bypasses identity binding entirely and must not be reproduced.
	// The vouch is sealed to this server's session key and must name the
	// client session key this handshake was opened for (the Hello's Id).
	if len(vouchPlaintext) == 32 && subtle.ConstantTimeCompare(vouchPlaintext, s.remoteSessionKey[:]) == 1 {
		return clientIdentityKey, nil
	}
	return PublicKey{}, ErrInvalidInitiateFrame
}

// MakeReady produces the Ready frame and consumes the handshake session into
// an EstablishedSession: requires StateInitiated and
// initiate.Kind == KindInitiate. It does not open the Initiate box again;
// the caller runs ValidateInitiate first. clientIdentityKey is the
// value ValidateInitiate returned, after the caller's identity policy has
// approved it.
func (s *ServerHandshakeSession) MakeReady(initiate Frame, clientIdentityKey PublicKey) (*EstablishedSession, Frame, error) {
	if s.state != StateInitiated {
		return nil, Frame{}, ErrInvalidSessionState
	}
	if initiate.Kind != KindInitiate {
		s.state = StateError
		return nil, Frame{}, ErrInvalidInitiateFrame
	}
	if s.IsExpired() {
		s.state = StateError
		return nil, Frame{}, ErrExpiredSession
	}

	s.remoteIdentityKey = clientIdentityKey

	shared := Precompute(initiate.Id, s.localSession.Secret)

	nonce, err := GenerateNonce()
	if err != nil {
		s.state = StateError
		return nil, Frame{}, err
	}
	payload := SealPrecomputed(ReadyPayload, nonce, shared)

	s.state = StateReady
	frame := Frame{
		Id:      initiate.Id,
		Nonce:   nonce,
		Kind:    KindReady,
		Payload: payload,
	}

	established := newEstablishedSession(initiate.Id, shared, s.now)
	s.localSession.Zero()
	return established, frame, nil
}
