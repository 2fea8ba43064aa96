package testutil

import (
	"log"
	"testing"
)

type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// TestLogger returns a logger whose output is captured by the test,
// so log lines only show up for failing tests.
func TestLogger(t *testing.T) *log.Logger {
	return log.New(&testWriter{t: t}, "[test] ", log.LstdFlags)
}
