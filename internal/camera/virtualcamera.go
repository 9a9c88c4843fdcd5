package camera

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vcam/internal/frame"
	"vcam/internal/logging"
)

// VirtualCamera は1台の仮想カメラ。
// 接続ごとにファクトリーからジェネレーターを受け取り、一定間隔でフレームを要求してシンクへ配信する。
type VirtualCamera struct {
	id            string
	settings      Settings
	factory       frame.Factory
	sinks         []Sink
	logger        *zap.SugaredLogger
	autoReconnect bool

	// Start/Stop/Restartを直列化する
	lifecycle sync.Mutex

	mu          sync.RWMutex
	running     bool
	status      Status
	connections int
	frames      uint64
	lastFrame   time.Time
	lastErr     error

	cancel    context.CancelFunc
	restartCh chan chan error
	buf       *frameBuffer
	wg        sync.WaitGroup
}

// connection は1回の接続で使うジェネレーター
type connection struct {
	gen     frame.Generator
	started time.Time
}

// Option はVirtualCameraの設定を変更する
type Option func(*VirtualCamera)

// WithID はカメラIDを指定する
func WithID(id string) Option {
	return func(c *VirtualCamera) { c.id = id }
}

// WithSink はフレームの出力先を追加する
func WithSink(sink Sink) Option {
	return func(c *VirtualCamera) { c.sinks = append(c.sinks, sink) }
}

// WithLogger はロガーを指定する
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *VirtualCamera) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAutoReconnect は接続が壊れた後に自動で作り直すかを指定する
func WithAutoReconnect(enabled bool) Option {
	return func(c *VirtualCamera) { c.autoReconnect = enabled }
}

// New は新しいVirtualCameraを作成する
func New(settings Settings, factory frame.Factory, opts ...Option) *VirtualCamera {
	c := &VirtualCamera{
		id:            uuid.New().String(),
		settings:      settings,
		factory:       factory,
		logger:        logging.Nop(),
		autoReconnect: true,
		status:        StatusInactive,
		restartCh:     make(chan chan error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID はカメラIDを返す
func (c *VirtualCamera) ID() string {
	return c.id
}

// Start はカメラを開始する
func (c *VirtualCamera) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.isRunning() {
		return fmt.Errorf("カメラ %s: %w", c.settings.Name, ErrAlreadyStarted)
	}

	// 設定の検証
	if err := validateSettings(c.settings); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	format := c.settings.Format()
	for i, sink := range c.sinks {
		if err := sink.Open(format); err != nil {
			return multierr.Combine(
				fmt.Errorf("シンクのオープンに失敗: %w: %w", ErrDevice, err),
				closeSinks(c.sinks[:i]),
			)
		}
	}

	// 最初の接続
	conn, err := c.openConnection()
	if err != nil {
		// 開始できなかったカメラは停止状態のまま、エラーだけ残す
		c.mu.Lock()
		c.status = StatusInactive
		c.lastErr = err
		c.mu.Unlock()
		return multierr.Combine(err, closeSinks(c.sinks))
	}
	c.recordConnection(nil)

	c.buf = newFrameBuffer(format.Size())
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(loopCtx, conn)

	c.logger.Infow("カメラを開始しました",
		"id", c.id, "name", c.settings.Name,
		"width", c.settings.Width, "height", c.settings.Height, "fps", c.settings.FPS)
	return nil
}

// Stop はカメラを停止する。停止中のカメラは状態をinactiveに戻すだけで成功する。
func (c *VirtualCamera) Stop(_ context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	running, cancel := c.running, c.cancel
	if !running {
		// 既に停止している
		c.status = StatusInactive
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// フレームループの終了を待機
	cancel()
	c.wg.Wait()

	err := closeSinks(c.sinks)

	c.mu.Lock()
	c.running = false
	c.status = StatusInactive
	c.cancel = nil
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("カメラ %s のシンクのクローズに失敗: %w: %w", c.settings.Name, ErrDevice, err)
	}

	c.logger.Infow("カメラを停止しました", "id", c.id, "name", c.settings.Name)
	return nil
}

// Restart は現在のジェネレーターを破棄し、ファクトリーから新しい接続を作る
func (c *VirtualCamera) Restart(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if !c.isRunning() {
		return fmt.Errorf("カメラ %s: %w", c.settings.Name, ErrNotStarted)
	}

	reply := make(chan error, 1)
	select {
	case c.restartCh <- reply:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info は現在のカメラ情報を返す
func (c *VirtualCamera) Info() Camera {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := Camera{
		ID:          c.id,
		Name:        c.settings.Name,
		Generator:   c.settings.Generator,
		Loopback:    c.settings.Loopback,
		FPS:         c.settings.FPS,
		Width:       c.settings.Width,
		Height:      c.settings.Height,
		Status:      c.status,
		Connections: c.connections,
		Frames:      c.frames,
		LastFrame:   c.lastFrame,
	}
	if c.lastErr != nil {
		info.LastError = c.lastErr.Error()
	}
	return info
}

// GetStatus は現在の状態を取得する
func (c *VirtualCamera) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// GetSettings は設定を取得する
func (c *VirtualCamera) GetSettings() Settings {
	return c.settings
}

func (c *VirtualCamera) isRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// run はフレームループ。ctxが終了するまで一定間隔でフレームを要求する。
func (c *VirtualCamera) run(ctx context.Context, conn *connection) {
	defer c.wg.Done()
	defer func() { c.discard(conn) }()

	ticker := time.NewTicker(time.Second / time.Duration(c.settings.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case reply := <-c.restartCh:
			c.logger.Infow("接続を作り直します", "id", c.id)
			c.discard(conn)
			next, err := c.openConnection()
			c.recordConnection(err)
			conn = next
			reply <- err

		case <-ticker.C:
			if conn == nil {
				if !c.autoReconnect {
					continue
				}
				next, err := c.openConnection()
				c.recordConnection(err)
				if err != nil {
					c.logger.Warnw("再接続に失敗しました", "id", c.id, "error", err)
					continue
				}
				conn = next
			}

			if err := c.deliverFrame(ctx, conn); err != nil {
				if ctx.Err() != nil {
					return
				}
				// この接続は復旧できない
				c.logger.Errorw("接続を破棄します", "id", c.id, "error", err)
				c.recordFailure(err)
				c.discard(conn)
				conn = nil
			}
		}
	}
}

// deliverFrame はジェネレーターから1フレームを受け取りシンクへ渡す
func (c *VirtualCamera) deliverFrame(ctx context.Context, conn *connection) error {
	c.buf.Reset()
	ts := int64(time.Since(conn.started)) / (int64(time.Second) / frame.TicksPerSecond)

	if err := conn.gen.CreateFrame(ctx, ts, c.buf, c.buf.Cap()); err != nil {
		return fmt.Errorf("フレームの生成に失敗: %w", err)
	}
	if err := c.buf.Complete(); err != nil {
		return err
	}

	f := frame.Frame{
		Format:    c.settings.Format(),
		Timestamp: ts,
		Data:      c.buf.Bytes(),
	}
	for _, sink := range c.sinks {
		if err := sink.WriteFrame(f); err != nil {
			c.logger.Warnw("シンクへの書き込みに失敗しました", "id", c.id, "error", err)
		}
	}

	c.mu.Lock()
	c.frames++
	c.lastFrame = time.Now()
	if c.status == StatusError {
		c.status = StatusActive
	}
	c.mu.Unlock()
	return nil
}

// openConnection はファクトリーから新しいジェネレーターを受け取る
func (c *VirtualCamera) openConnection() (*connection, error) {
	gen, err := c.factory.CreateFrameGenerator(uint16(c.settings.Width), uint16(c.settings.Height))
	if err != nil {
		return nil, fmt.Errorf("フレームジェネレーターの作成に失敗: %w", err)
	}
	return &connection{gen: gen, started: time.Now()}, nil
}

// recordConnection は接続の結果を状態に反映する
func (c *VirtualCamera) recordConnection(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.status = StatusError
		c.lastErr = err
		return
	}
	c.connections++
	c.frames = 0
	c.status = StatusActive
}

// recordFailure は接続が壊れたことを状態に反映する
func (c *VirtualCamera) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusError
	c.lastErr = err
}

// discard は接続のジェネレーターを破棄する
func (c *VirtualCamera) discard(conn *connection) {
	if conn == nil {
		return
	}
	if closer, ok := conn.gen.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.logger.Debugw("ジェネレーターの解放に失敗しました", "id", c.id, "error", err)
		}
	}
}

// validateSettings は設定値の妥当性を検証する
func validateSettings(settings Settings) error {
	if settings.Name == "" {
		return fmt.Errorf("カメラ名が空です")
	}

	if settings.FPS <= 0 || settings.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", settings.FPS)
	}

	return frame.ValidateSize(settings.Width, settings.Height)
}

// closeSinks は全てのシンクを閉じ、エラーをまとめて返す
func closeSinks(sinks []Sink) error {
	var err error
	for _, sink := range sinks {
		err = multierr.Append(err, sink.Close())
	}
	return err
}
