package monitoring

import (
	"fmt"
	"strings"
	"testing"
)

func TestSetLoggerRedirects(t *testing.T) {
	defer SetLogger(nil)

	var buf strings.Builder
	SetLogger(func(format string, v ...interface{}) {
		fmt.Fprintf(&buf, format, v...)
	})

	Logf("scored %d flights", 42)
	if got := buf.String(); got != "scored 42 flights" {
		t.Errorf("Logf output = %q, want %q", got, "scored 42 flights")
	}
}

func TestSetLoggerNilIsNoOp(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Logf("dropped %s", "message")
	SetLogger(nil)
}
