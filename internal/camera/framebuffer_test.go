package camera

import (
	"errors"
	"testing"
)

func TestFrameBuffer(t *testing.T) {
	tests := []struct {
		name    string
		writes  []int
		wantErr bool
	}{
		{"ちょうど", []int{8}, false},
		{"分割書き込み", []int{3, 5}, false},
		{"不足", []int{7}, true},
		{"超過", []int{6, 6}, true},
		{"空", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFrameBuffer(8)
			for _, n := range tt.writes {
				_, _ = b.Write(make([]byte, n))
			}

			err := b.Complete()
			if tt.wantErr {
				if !errors.Is(err, ErrFrameSize) {
					t.Errorf("Expected ErrFrameSize, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if len(b.Bytes()) != 8 {
				t.Errorf("Expected 8 bytes, got %d", len(b.Bytes()))
			}
		})
	}
}

func TestFrameBuffer_OverflowWrite(t *testing.T) {
	b := newFrameBuffer(4)

	n, err := b.Write([]byte{1, 2, 3, 4, 5, 6})
	if !errors.Is(err, ErrFrameSize) {
		t.Fatalf("Expected ErrFrameSize, got %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes accepted, got %d", n)
	}

	// Resetで再利用できる
	b.Reset()
	if _, err := b.Write([]byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("Write after Reset failed: %v", err)
	}
	if err := b.Complete(); err != nil {
		t.Errorf("Complete after Reset failed: %v", err)
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected uint32
	}{
		{"nil", nil, CodeOK},
		{"開始済み", ErrAlreadyStarted, CodeAlreadyStarted},
		{"ラップされた設定エラー", errors.Join(errors.New("x"), ErrInvalidSettings), CodeInvalidArg},
		{"未開始", ErrNotStarted, CodeNotReady},
		{"バイト数", ErrFrameSize, CodeInvalidData},
		{"デバイス", ErrDevice, CodeDevice},
		{"見つからない", ErrNotFound, CodeNotFound},
		{"その他", errors.New("boom"), CodeFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.expected {
				t.Errorf("Code(%v) = %x, expected %x", tt.err, got, tt.expected)
			}
		})
	}
}
