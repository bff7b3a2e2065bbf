package bootstrap

import (
	"context"
	"fmt"

	"github.com/coder/websocket"

	"github.com/gosuda/curvewire/core/cryptoops"
)

// Dial opens a websocket connection to url and drives the initiator side of
// the four-message exchange to completion, returning the resulting
// EstablishedSession and the open connection for subsequent message
// exchange. The caller owns conn afterward.
func Dial(ctx context.Context, url string, localIdentity cryptoops.KeyPair, remoteIdentityKey cryptoops.PublicKey) (*cryptoops.EstablishedSession, *websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: dial %s: %w", url, err)
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, cryptoops.HandshakeDuration)
	defer cancel()

	session, err := dialHandshake(handshakeCtx, conn, localIdentity, remoteIdentityKey)
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, nil, err
	}
	return session, conn, nil
}

func dialHandshake(ctx context.Context, conn *websocket.Conn, localIdentity cryptoops.KeyPair, remoteIdentityKey cryptoops.PublicKey) (*cryptoops.EstablishedSession, error) {
	client, err := cryptoops.NewClientHandshakeSession(localIdentity, remoteIdentityKey)
	if err != nil {
		return nil, err
	}

	hello, err := client.MakeHello()
	if err != nil {
		return nil, err
	}
	if err := writeFrame(ctx, conn, hello); err != nil {
		return nil, err
	}

	welcomeBytes, err := readFrame(ctx, conn)
	if err != nil {
		return nil, err
	}
	welcome, err := cryptoops.DecodeFrame(welcomeBytes)
	if err != nil {
		return nil, err
	}

	initiate, err := client.MakeInitiate(welcome)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(ctx, conn, initiate); err != nil {
		return nil, err
	}

	readyBytes, err := readFrame(ctx, conn)
	if err != nil {
		return nil, err
	}
	ready, err := cryptoops.DecodeFrame(readyBytes)
	if err != nil {
		return nil, err
	}

	return client.ReadReady(ready)
}
