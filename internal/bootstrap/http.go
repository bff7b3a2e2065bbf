// Package bootstrap wires the core handshake state machine to a concrete
// transport. spec.md §6 keeps transport, session storage, and identity
// policy outside the core library; this package supplies the transport and
// an identity-policy hook (IdentityProvider) for a demo deployment, binding
// the four-message exchange to a go-chi/chi/v5 HTTP endpoint upgraded to
// github.com/coder/websocket. Session storage is left to the caller.
package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/curvewire/core/cryptoops"
)

// ErrIdentityNotAllowed is returned when IdentityProvider.Allow rejects a
// remote identity key surfaced by ValidateInitiate. It belongs to this
// package, not cryptoops, because identity policy is a caller concern
// (spec.md §6).
var ErrIdentityNotAllowed = errors.New("bootstrap: remote identity not allowed")

// IdentityProvider supplies the long-term keypair a bootstrap endpoint
// answers handshakes with, and decides whether an authenticated peer's
// identity key may complete the handshake.
type IdentityProvider interface {
	LocalIdentity() *cryptoops.KeyPair
	Allow(remoteIdentity cryptoops.PublicKey) bool
}

// SessionHandler is invoked once per successfully established session, after
// the Ready frame has been written to conn. It owns conn for the remainder
// of its lifetime and is responsible for closing it.
type SessionHandler func(ctx context.Context, session *cryptoops.EstablishedSession, conn *websocket.Conn)

// Router builds a chi.Router mounting a single handshake bootstrap endpoint
// at path. Every accepted connection runs the four-message exchange to
// completion (or to a handshake error) before handle is invoked.
func Router(path string, idp IdentityProvider, handle SessionHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		serveHandshake(w, req, idp, handle)
	})
	return r
}

func serveHandshake(w http.ResponseWriter, req *http.Request, idp IdentityProvider, handle SessionHandler) {
	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error().Err(err).Msg("bootstrap: websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(req.Context(), cryptoops.HandshakeDuration)
	defer cancel()

	session, err := acceptHandshake(ctx, conn, idp)
	if err != nil {
		log.Warn().Err(err).Msg("bootstrap: handshake failed")
		conn.Close(websocket.StatusProtocolError, "handshake failed")
		return
	}

	handle(req.Context(), session, conn)
}

// acceptHandshake drives the responder side of the four-message exchange
// over a single websocket connection: read Hello, write Welcome, read
// Initiate, write Ready.
func acceptHandshake(ctx context.Context, conn *websocket.Conn, idp IdentityProvider) (*cryptoops.EstablishedSession, error) {
	helloBytes, err := readFrame(ctx, conn)
	if err != nil {
		return nil, err
	}
	hello, err := cryptoops.DecodeFrame(helloBytes)
	if err != nil {
		return nil, err
	}

	server, err := cryptoops.NewServerHandshakeSession(idp.LocalIdentity(), hello.Id)
	if err != nil {
		return nil, err
	}

	welcome, err := server.MakeWelcome(hello)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(ctx, conn, welcome); err != nil {
		return nil, err
	}

	initiateBytes, err := readFrame(ctx, conn)
	if err != nil {
		return nil, err
	}
	initiate, err := cryptoops.DecodeFrame(initiateBytes)
	if err != nil {
		return nil, err
	}

	remoteIdentity, err := server.ValidateInitiate(initiate)
	if err != nil {
		return nil, err
	}
	if !idp.Allow(remoteIdentity) {
		return nil, ErrIdentityNotAllowed
	}

	session, ready, err := server.MakeReady(initiate, remoteIdentity)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(ctx, conn, ready); err != nil {
		return nil, err
	}

	return session, nil
}

func readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	_, data, err := conn.Read(ctx)
	return data, err
}

func writeFrame(ctx context.Context, conn *websocket.Conn, f cryptoops.Frame) error {
	return conn.Write(ctx, websocket.MessageBinary, f.Encode(nil))
}
