package camera

import (
	"context"
	"errors"
	"testing"
	"time"

	"vcam/internal/frame"
)

func TestVirtualCamera_StartStop(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	sink := &fakeSink{}
	cam := New(testSettings(), factory, WithSink(sink))

	if code := Code(cam.Start(ctx)); code != CodeOK {
		t.Fatalf("Expected start code 0, got %x", code)
	}

	if cam.GetStatus() != StatusActive {
		t.Errorf("Expected status active, got %s", cam.GetStatus())
	}

	waitFor(t, "frames", func() bool { return sink.count() >= 3 })

	f := sink.last()
	if len(f.Data) != frame.Size(16, 8) {
		t.Errorf("Expected frame of %d bytes, got %d", frame.Size(16, 8), len(f.Data))
	}
	if f.Data[0] != 1 {
		t.Errorf("Expected frame from first generator, got fill %d", f.Data[0])
	}

	if code := Code(cam.Stop(ctx)); code != CodeOK {
		t.Fatalf("Expected stop code 0, got %x", code)
	}

	info := cam.Info()
	if info.Status != StatusInactive {
		t.Errorf("Expected status inactive, got %s", info.Status)
	}
	if info.Connections != 1 {
		t.Errorf("Expected 1 connection, got %d", info.Connections)
	}
	if info.Frames == 0 {
		t.Error("Expected frame count to be recorded")
	}

	if sink.opened != 1 || sink.closed != 1 {
		t.Errorf("Expected sink opened and closed once, got %d/%d", sink.opened, sink.closed)
	}
	if factory.closed.Load() != 1 {
		t.Errorf("Expected generator to be discarded once, got %d", factory.closed.Load())
	}
}

func TestVirtualCamera_TimestampsIncrease(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	cam := New(testSettings(), &fakeFactory{}, WithSink(sink))

	if err := cam.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "frames", func() bool { return sink.count() >= 4 })
	_ = cam.Stop(ctx)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i := 1; i < len(sink.frames); i++ {
		if sink.frames[i].Timestamp <= sink.frames[i-1].Timestamp {
			t.Fatalf("Timestamp did not increase at frame %d: %d -> %d",
				i, sink.frames[i-1].Timestamp, sink.frames[i].Timestamp)
		}
	}
}

func TestVirtualCamera_StartTwice(t *testing.T) {
	ctx := context.Background()
	cam := New(testSettings(), &fakeFactory{})

	if err := cam.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = cam.Stop(ctx) }()

	err := cam.Start(ctx)
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("Expected ErrAlreadyStarted, got %v", err)
	}
	if Code(err) != CodeAlreadyStarted {
		t.Errorf("Expected code %x, got %x", CodeAlreadyStarted, Code(err))
	}
}

func TestVirtualCamera_StopInactive(t *testing.T) {
	cam := New(testSettings(), &fakeFactory{})

	if err := cam.Stop(context.Background()); err != nil {
		t.Errorf("Expected stopping an inactive camera to succeed, got %v", err)
	}
}

func TestVirtualCamera_StartAfterStop(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	sink := &fakeSink{}
	cam := New(testSettings(), factory, WithSink(sink))

	for i := 0; i < 2; i++ {
		if err := cam.Start(ctx); err != nil {
			t.Fatalf("Start #%d failed: %v", i+1, err)
		}
		if err := cam.Stop(ctx); err != nil {
			t.Fatalf("Stop #%d failed: %v", i+1, err)
		}
	}

	if got := factory.calls.Load(); got != 2 {
		t.Errorf("Expected factory to be called twice, got %d", got)
	}
	if cam.Info().Connections != 2 {
		t.Errorf("Expected 2 connections, got %d", cam.Info().Connections)
	}
}

func TestVirtualCamera_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"空の名前", Settings{Name: "", FPS: 30, Width: 16, Height: 8}},
		{"FPSが0", Settings{Name: "x", FPS: 0, Width: 16, Height: 8}},
		{"FPSが大きすぎる", Settings{Name: "x", FPS: 120, Width: 16, Height: 8}},
		{"幅が0", Settings{Name: "x", FPS: 30, Width: 0, Height: 8}},
		{"高さが大きすぎる", Settings{Name: "x", FPS: 30, Width: 16, Height: frame.MaxDimension + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &fakeFactory{}
			cam := New(tt.settings, factory)

			err := cam.Start(context.Background())
			if !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("Expected ErrInvalidSettings, got %v", err)
			}
			if Code(err) != CodeInvalidArg {
				t.Errorf("Expected code %x, got %x", CodeInvalidArg, Code(err))
			}
			if factory.calls.Load() != 0 {
				t.Error("Expected factory not to be called")
			}
		})
	}
}

func TestVirtualCamera_SinkOpenFailure(t *testing.T) {
	ctx := context.Background()
	good := &fakeSink{}
	bad := &fakeSink{openErr: errSinkBroken}
	factory := &fakeFactory{}
	cam := New(testSettings(), factory, WithSink(good), WithSink(bad))

	err := cam.Start(ctx)
	if Code(err) != CodeDevice {
		t.Fatalf("Expected code %x, got %x (%v)", CodeDevice, Code(err), err)
	}
	if !errors.Is(err, errSinkBroken) {
		t.Errorf("Expected sink error to be wrapped, got %v", err)
	}

	// 先に開いたシンクは閉じられる
	if good.closed != 1 {
		t.Errorf("Expected first sink to be closed, got %d", good.closed)
	}
	if factory.calls.Load() != 0 {
		t.Error("Expected factory not to be called")
	}
	if cam.GetStatus() != StatusInactive {
		t.Errorf("Expected status inactive, got %s", cam.GetStatus())
	}
}

func TestVirtualCamera_FactoryFailure(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	cam := New(testSettings(), &fakeFactory{err: frame.ErrInvalidSize}, WithSink(sink))

	err := cam.Start(ctx)
	if !errors.Is(err, frame.ErrInvalidSize) {
		t.Fatalf("Expected factory error, got %v", err)
	}
	if Code(err) != CodeFail {
		t.Errorf("Expected code %x, got %x", CodeFail, Code(err))
	}
	if sink.closed != 1 {
		t.Errorf("Expected sink to be closed after failed start, got %d", sink.closed)
	}
	// 開始に失敗したカメラは停止状態で、エラーだけが残る
	info := cam.Info()
	if info.Status != StatusInactive {
		t.Errorf("Expected status inactive, got %s", info.Status)
	}
	if info.LastError == "" {
		t.Error("Expected last error to be recorded")
	}
}

func TestVirtualCamera_StopAfterFailedStart(t *testing.T) {
	ctx := context.Background()
	cam := New(testSettings(), &fakeFactory{err: frame.ErrInvalidSize})

	if err := cam.Start(ctx); err == nil {
		t.Fatal("Expected start to fail")
	}

	if code := Code(cam.Stop(ctx)); code != CodeOK {
		t.Fatalf("Expected stop code 0, got %x", code)
	}
	if cam.GetStatus() != StatusInactive {
		t.Errorf("Expected status inactive after stop, got %s", cam.GetStatus())
	}
}

func TestVirtualCamera_StopResetsErrorStatus(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{shortBy: 4}
	cam := New(testSettings(), factory, WithAutoReconnect(false))

	if err := cam.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "error status", func() bool { return cam.GetStatus() == StatusError })

	if err := cam.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if cam.GetStatus() != StatusInactive {
		t.Errorf("Expected status inactive after stop, got %s", cam.GetStatus())
	}

	// 停止済みのカメラをもう一度停止しても状態は変わらない
	if err := cam.Stop(ctx); err != nil {
		t.Fatalf("Second stop failed: %v", err)
	}
	if cam.GetStatus() != StatusInactive {
		t.Errorf("Expected status to stay inactive, got %s", cam.GetStatus())
	}
}

func TestVirtualCamera_ShortFrameReconnects(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{shortBy: 1}
	sink := &fakeSink{}
	cam := New(testSettings(), factory, WithSink(sink))

	if err := cam.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = cam.Stop(ctx) }()

	// 壊れた接続は破棄され、ファクトリーが再度呼ばれる
	waitFor(t, "reconnect", func() bool { return cam.Info().Connections >= 3 })

	info := cam.Info()
	if info.LastError == "" {
		t.Error("Expected last error to be recorded")
	}
	if sink.count() != 0 {
		t.Errorf("Expected no frames to reach the sink, got %d", sink.count())
	}
	if factory.closed.Load() < 2 {
		t.Errorf("Expected broken generators to be discarded, got %d", factory.closed.Load())
	}
}

func TestVirtualCamera_ShortFrameWithoutReconnect(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{shortBy: 4}
	cam := New(testSettings(), factory, WithAutoReconnect(false))

	if err := cam.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = cam.Stop(ctx) }()

	waitFor(t, "error status", func() bool { return cam.GetStatus() == StatusError })

	// 何ティックか待っても再接続しない
	time.Sleep(100 * time.Millisecond)
	if got := factory.calls.Load(); got != 1 {
		t.Errorf("Expected factory to be called once, got %d", got)
	}
	if cam.GetStatus() != StatusError {
		t.Errorf("Expected status to stay error, got %s", cam.GetStatus())
	}
}

func TestVirtualCamera_Restart(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	sink := &fakeSink{}
	cam := New(testSettings(), factory, WithSink(sink))

	// 停止中は再起動できない
	if err := cam.Restart(ctx); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Expected ErrNotStarted, got %v", err)
	}

	if err := cam.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = cam.Stop(ctx) }()

	waitFor(t, "first frame", func() bool { return sink.count() > 0 })

	if err := cam.Restart(ctx); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	if got := factory.calls.Load(); got != 2 {
		t.Errorf("Expected factory to be called twice, got %d", got)
	}
	if factory.closed.Load() != 1 {
		t.Errorf("Expected old generator to be discarded, got %d", factory.closed.Load())
	}

	// 新しいジェネレーターのフレームが届く
	waitFor(t, "frame from new generator", func() bool {
		return sink.count() > 0 && sink.last().Data[0] == 2
	})
}

func TestVirtualCamera_ArcFactory(t *testing.T) {
	ctx := context.Background()
	settings := Settings{Name: "Go VCam", FPS: 30, Width: 64, Height: 48}
	sink := &fakeSink{}
	cam := New(settings, frame.NewArcFactory(30, frame.DefaultText, nil), WithSink(sink))

	if err := cam.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "frames", func() bool { return sink.count() >= 2 })
	if err := cam.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	info := cam.Info()
	if info.LastError != "" {
		t.Errorf("Expected no error, got %s", info.LastError)
	}
	if got := len(sink.last().Data); got != frame.Size(64, 48) {
		t.Errorf("Expected %d bytes, got %d", frame.Size(64, 48), got)
	}
}
