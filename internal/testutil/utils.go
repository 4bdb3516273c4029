package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger that stays quiet unless tests run with -v.
// Output goes to stdout rather than t.Logf so goroutines that outlive
// the test can still log safely.
func TestLogger(t *testing.T) *log.Logger {
	t.Helper()

	var out io.Writer = io.Discard
	if testing.Verbose() {
		out = os.Stdout
	}
	return log.New(out, "[umlcollab-test] ", log.LstdFlags)
}
