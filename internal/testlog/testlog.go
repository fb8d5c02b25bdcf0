// Package testlog provides a quiet slog.Logger for tests.
package testlog

import (
	"io"
	"log/slog"
	"testing"
)

func New(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
