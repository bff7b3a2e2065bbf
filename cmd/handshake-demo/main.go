// Command handshake-demo drives the core/cryptoops handshake and secured
// channel over a real websocket transport, with a pebble-backed session
// store for bookkeeping. It exists to exercise the library end to end; none
// of it is part of the library's public surface (spec.md §6).
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/curvewire/core/cryptoops"
	"github.com/gosuda/curvewire/internal/bootstrap"
	"github.com/gosuda/curvewire/internal/sessionstore"
)

var rootCmd = &cobra.Command{
	Use:   "handshake-demo",
	Short: "Demo client/server for the curvewire handshake protocol",
}

var (
	flagAddr      string
	flagStoreDir  string
	flagRemoteHex string
	flagURL       string
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a handshake bootstrap endpoint",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8787", "HTTP listen address (env: CURVEWIRE_ADDR)")
	serveCmd.Flags().StringVar(&flagStoreDir, "store-dir", "./curvewire-sessions", "pebble session store directory (env: CURVEWIRE_STORE_DIR)")

	dialCmd := &cobra.Command{
		Use:   "dial",
		Short: "Dial a handshake bootstrap endpoint",
		RunE:  runDial,
	}
	dialCmd.Flags().StringVar(&flagURL, "url", "ws://localhost:8787/handshake", "bootstrap endpoint URL")
	dialCmd.Flags().StringVar(&flagRemoteHex, "remote-identity", "", "hex-encoded server identity public key (required)")
	_ = dialCmd.MarkFlagRequired("remote-identity")

	rootCmd.AddCommand(serveCmd, dialCmd)

	if v := os.Getenv("CURVEWIRE_ADDR"); v != "" {
		flagAddr = v
	}
	if v := os.Getenv("CURVEWIRE_STORE_DIR"); v != "" {
		flagStoreDir = v
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute root command")
	}
}

type fixedIdentity struct {
	kp *cryptoops.KeyPair
}

func (f *fixedIdentity) LocalIdentity() *cryptoops.KeyPair { return f.kp }

// Allow accepts every remote identity. A production deployment replaces this
// with an allowlist or a lookup against its own identity policy store —
// spec.md §6 keeps that decision outside the core library.
func (f *fixedIdentity) Allow(cryptoops.PublicKey) bool { return true }

func runServe(cmd *cobra.Command, args []string) error {
	if err := cryptoops.Init(); err != nil {
		return err
	}

	identity, err := cryptoops.GenerateKeyPair()
	if err != nil {
		return err
	}
	log.Info().Str("identity", hex.EncodeToString(identity.Public[:])).Msg("serving with ephemeral identity")

	store, err := sessionstore.Open(flagStoreDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweepLoop(ctx, store)

	idp := &fixedIdentity{kp: &identity}
	handle := func(ctx context.Context, session *cryptoops.EstablishedSession, conn *websocket.Conn) {
		defer conn.Close(websocket.StatusNormalClosure, "")

		if err := store.Put(session.Id(), sessionstore.Record{
			SessionID:     hex.EncodeToString(session.Id()[:]),
			EstablishedAt: time.Now(),
		}, time.Now().Add(cryptoops.SessionDuration)); err != nil {
			log.Error().Err(err).Msg("persist session record")
		}

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			frame, err := cryptoops.DecodeFrame(data)
			if err != nil {
				log.Warn().Err(err).Msg("decode message frame")
				return
			}
			plaintext, err := session.ReadMsg(frame)
			if err != nil {
				log.Warn().Err(err).Msg("open message frame")
				return
			}
			log.Info().Str("payload", string(plaintext)).Msg("received message")

			reply, err := session.MakeResponse([]byte("ack: " + string(plaintext)))
			if err != nil {
				log.Error().Err(err).Msg("build response")
				return
			}
			if err := conn.Write(ctx, websocket.MessageBinary, reply.Encode(nil)); err != nil {
				return
			}
		}
	}

	router := bootstrap.Router("/handshake", idp, handle)
	srv := &http.Server{Addr: flagAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", flagAddr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func sweepLoop(ctx context.Context, store *sessionstore.Store) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("sweep session store")
				continue
			}
			if removed > 0 {
				log.Info().Int("removed", removed).Msg("swept expired sessions")
			}
		}
	}
}

func runDial(cmd *cobra.Command, args []string) error {
	if err := cryptoops.Init(); err != nil {
		return err
	}

	remoteBytes, err := hex.DecodeString(flagRemoteHex)
	if err != nil || len(remoteBytes) != cryptoops.KeySize {
		log.Fatal().Msg("--remote-identity must be a 64-character hex-encoded public key")
	}
	var remoteIdentity cryptoops.PublicKey
	copy(remoteIdentity[:], remoteBytes)

	localIdentity, err := cryptoops.GenerateKeyPair()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session, conn, err := bootstrap.Dial(ctx, flagURL, localIdentity, remoteIdentity)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	log.Info().Str("session_id", hex.EncodeToString(session.Id()[:])).Msg("handshake established")

	greeting := []byte("hello from handshake-demo " + hex.EncodeToString(randomTag()))
	req, err := session.MakeRequest(greeting)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageBinary, req.Encode(nil)); err != nil {
		return err
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	reply, err := cryptoops.DecodeFrame(data)
	if err != nil {
		return err
	}
	plaintext, err := session.ReadMsg(reply)
	if err != nil {
		return err
	}
	log.Info().Str("reply", string(plaintext)).Msg("server replied")
	return nil
}

func randomTag() []byte {
	tag := make([]byte, 4)
	_, _ = rand.Read(tag)
	return tag
}
