package main

import (
	"os"
	"syscall"
	"testing"

	"reminderbot/internal/app"
)

func TestStopReasonFor(t *testing.T) {
	t.Parallel()
	if got := stopReasonFor(os.Interrupt); got != app.StopSIGINT {
		t.Fatalf("stopReasonFor(Interrupt) = %q", got)
	}
	if got := stopReasonFor(syscall.SIGTERM); got != app.StopSIGTERM {
		t.Fatalf("stopReasonFor(SIGTERM) = %q", got)
	}
}
