// Package testutil holds helpers shared by package tests and the scenario
// harness: fixed flow tokens, throwaway transition logs and quiet logging.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/store"
)

// OpenStore opens a SQLite transition log in a per-test directory and
// closes it when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// QuietLogs sends the default slog logger to io.Discard for the rest of
// the test.
func QuietLogs(t testing.TB) {
	t.Helper()
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
}
