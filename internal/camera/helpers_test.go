package camera

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vcam/internal/frame"
)

// fakeGenerator は固定値でフレームを埋める。shortByだけ少なく書く。
type fakeGenerator struct {
	fill    byte
	shortBy int
	closed  *atomic.Int32
}

func (g *fakeGenerator) CreateFrame(_ context.Context, _ int64, w io.Writer, n int) error {
	buf := make([]byte, n-g.shortBy)
	for i := range buf {
		buf[i] = g.fill
	}
	_, err := w.Write(buf)
	return err
}

func (g *fakeGenerator) Close() error {
	g.closed.Add(1)
	return nil
}

// fakeFactory はCreateFrameGeneratorの呼び出し回数を数える
type fakeFactory struct {
	shortBy int
	err     error
	calls   atomic.Int32
	closed  atomic.Int32
}

func (f *fakeFactory) CreateFrameGenerator(width, height uint16) (frame.Generator, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeGenerator{fill: byte(n), shortBy: f.shortBy, closed: &f.closed}, nil
}

// fakeSink は受け取ったフレームを記録する
type fakeSink struct {
	openErr  error
	closeErr error

	mu     sync.Mutex
	opened int
	closed int
	frames []frame.Frame
}

func (s *fakeSink) Open(_ frame.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.opened++
	return nil
}

func (s *fakeSink) WriteFrame(f frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	f.Data = data
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSink) last() frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

var errSinkBroken = errors.New("sink broken")

func testSettings() Settings {
	return Settings{Name: "Test VCam", FPS: 60, Width: 16, Height: 8, Generator: frame.KindArc}
}

// waitFor はcondが真になるまで待つ
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
