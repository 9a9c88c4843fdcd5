package logging

import "testing"

func TestNew(t *testing.T) {
	for _, debug := range []bool{false, true} {
		logger, err := New(debug)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", debug, err)
		}
		logger.Debugw("test message", "debug", debug)
		_ = logger.Sync()
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	if logger == nil {
		t.Fatal("Expected logger")
	}
	logger.Infow("discarded")
}
