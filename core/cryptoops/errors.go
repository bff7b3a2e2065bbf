package cryptoops

import "errors"

// Errors returned by the handshake and session layers. Each is terminal
// for the operation that produced it; see the state machine comments in
// handshake.go for which states they drive to Error.
var (
	ErrInvalidSessionState = errors.New("cryptoops: invalid session state")
	ErrInvalidHelloFrame   = errors.New("cryptoops: invalid hello frame")
	ErrInvalidWelcomeFrame = errors.New("cryptoops: invalid welcome frame")
	ErrInvalidInitiateFrame = errors.New("cryptoops: invalid initiate frame")
	ErrInvalidReadyFrame   = errors.New("cryptoops: invalid ready frame")
	ErrInvalidPublicKey    = errors.New("cryptoops: public key failed validation")
	ErrDecryptionFailed    = errors.New("cryptoops: decryption failed")
	ErrExpiredSession      = errors.New("cryptoops: session expired")
	ErrIncompleteFrame     = errors.New("cryptoops: incomplete frame")
	ErrBadFrame            = errors.New("cryptoops: unrecognized frame kind")
	ErrInitializationFailed = errors.New("cryptoops: initialization failed")
)
