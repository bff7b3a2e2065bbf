package cryptoops

import "time"

// EstablishedSession is the secured channel produced by a successful
// handshake. Its shared secret is fixed for the life of the session; seal
// and open operations touch only local state and may be invoked
// concurrently (spec.md §5).
type EstablishedSession struct {
	id           PublicKey
	sharedSecret SharedKey
	expireAt     time.Time
	now          func() time.Time
}

func newEstablishedSession(id PublicKey, sharedSecret SharedKey, now func() time.Time) *EstablishedSession {
	if now == nil {
		now = time.Now
	}
	return &EstablishedSession{
		id:           id,
		sharedSecret: sharedSecret,
		expireAt:     now().Add(SessionDuration),
		now:          now,
	}
}

// Id returns the session id: the client's ephemeral public key.
func (es *EstablishedSession) Id() PublicKey {
	return es.id
}

// IsExpired reports whether the session has outlived SessionDuration.
// Expired iff now >= expire_at (spec.md §9).
func (es *EstablishedSession) IsExpired() bool {
	return !es.now().Before(es.expireAt)
}

// SealMsg seals an arbitrary application payload under the session's
// shared secret and returns the nonce used, for correlation by the caller.
func (es *EstablishedSession) SealMsg(plaintext []byte) (Nonce, []byte, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return Nonce{}, nil, err
	}
	return nonce, SealPrecomputed(plaintext, nonce, es.sharedSecret), nil
}

// ReadMsg opens frame's payload under the session's shared secret, using
// frame.Nonce.
func (es *EstablishedSession) ReadMsg(frame Frame) ([]byte, error) {
	return OpenPrecomputed(frame.Payload, frame.Nonce, es.sharedSecret)
}

func (es *EstablishedSession) makeFrame(kind FrameKind, plaintext []byte) (Frame, error) {
	if es.IsExpired() {
		return Frame{}, ErrExpiredSession
	}
	nonce, ciphertext, err := es.SealMsg(plaintext)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Id:      es.id,
		Nonce:   nonce,
		Kind:    kind,
		Payload: ciphertext,
	}, nil
}

// MakeRequest builds a Request frame sealed under the session secret.
func (es *EstablishedSession) MakeRequest(plaintext []byte) (Frame, error) {
	return es.makeFrame(KindRequest, plaintext)
}

// MakeResponse builds a Response frame sealed under the session secret.
func (es *EstablishedSession) MakeResponse(plaintext []byte) (Frame, error) {
	return es.makeFrame(KindResponse, plaintext)
}

// MakeNotification builds a Notification frame sealed under the session
// secret.
func (es *EstablishedSession) MakeNotification(plaintext []byte) (Frame, error) {
	return es.makeFrame(KindNotification, plaintext)
}
