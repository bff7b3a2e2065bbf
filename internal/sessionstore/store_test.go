package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/crlib/testutils/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	var id [32]byte
	id[0] = 0xAB

	rec := Record{SessionID: "abc", RemoteID: "def", EstablishedAt: time.Now()}
	require.NoError(t, store.Put(id, rec, time.Now().Add(time.Hour)))

	got, ok, err := store.Get(id)
	require.NoError(t, err)
	if !ok {
		t.Fatal("expected record to exist")
	}
	if got.SessionID != "abc" || got.RemoteID != "def" {
		t.Fatalf("got = %+v, want SessionID=abc RemoteID=def", got)
	}
	if got.AuditID == "" {
		t.Fatal("expected Put to stamp a non-empty audit id")
	}
}

func TestGetMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	var id [32]byte
	id[0] = 0xFF

	_, ok, err := store.Get(id)
	require.NoError(t, err)
	if ok {
		t.Fatal("expected no record for unknown id")
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	var id [32]byte
	id[1] = 0x01

	require.NoError(t, store.Put(id, Record{SessionID: "x"}, time.Now().Add(time.Hour)))
	require.NoError(t, store.Delete(id))

	_, ok, err := store.Get(id)
	require.NoError(t, err)
	if ok {
		t.Fatal("expected record to be gone after Delete")
	}
}

func TestSweepRemovesExpiredOnly(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()

	var expiredID, liveID [32]byte
	expiredID[2] = 0x01
	liveID[2] = 0x02

	require.NoError(t, store.Put(expiredID, Record{SessionID: "expired"}, now.Add(-time.Minute)))
	require.NoError(t, store.Put(liveID, Record{SessionID: "live"}, now.Add(time.Hour)))

	removed, err := store.Sweep(context.Background(), now)
	require.NoError(t, err)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	_, ok, err := store.Get(expiredID)
	require.NoError(t, err)
	if ok {
		t.Fatal("expired record should have been swept")
	}

	_, ok, err = store.Get(liveID)
	require.NoError(t, err)
	if !ok {
		t.Fatal("live record should survive sweep")
	}
}
