package camera

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vcam/internal/frame"
	"vcam/internal/logging"
	"vcam/internal/stream"
)

// ManagerOptions はManagerの動作設定
type ManagerOptions struct {
	AutoReconnect bool // 接続が壊れた後に自動で作り直す
	JPEGQuality   int  // プレビューのJPEG品質
}

// DefaultManagerOptions は既定のManagerOptionsを返す
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		AutoReconnect: true,
		JPEGQuality:   stream.DefaultQuality,
	}
}

// entry は管理対象の1台分
type entry struct {
	camera  *VirtualCamera
	preview *stream.Broadcaster
	order   int
}

// DefaultCameraManager はManagerのデフォルト実装
type DefaultCameraManager struct {
	registry  *frame.Registry
	discovery Discovery
	logger    *zap.SugaredLogger
	options   ManagerOptions

	mu      sync.RWMutex
	cameras map[string]*entry
	added   int
}

// NewDefaultCameraManager は新しいDefaultCameraManagerを作成する
func NewDefaultCameraManager(registry *frame.Registry, discovery Discovery, logger *zap.SugaredLogger, options ManagerOptions) *DefaultCameraManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DefaultCameraManager{
		registry:  registry,
		discovery: discovery,
		logger:    logger,
		options:   options,
		cameras:   make(map[string]*entry),
	}
}

// Stop は全てのカメラを停止する
func (m *DefaultCameraManager) Stop(ctx context.Context) error {
	m.mu.RLock()
	entries := m.sortedLocked()
	m.mu.RUnlock()

	var err error
	for _, e := range entries {
		if stopErr := e.camera.Stop(ctx); stopErr != nil {
			err = multierr.Append(err, fmt.Errorf("カメラ %s の停止に失敗: %w", e.camera.ID(), stopErr))
		}
	}
	return err
}

// GetCameras は追加された順にカメラ一覧を取得する
func (m *DefaultCameraManager) GetCameras() []Camera {
	m.mu.RLock()
	entries := m.sortedLocked()
	m.mu.RUnlock()

	cameras := make([]Camera, 0, len(entries))
	for _, e := range entries {
		cameras = append(cameras, e.camera.Info())
	}
	return cameras
}

// GetCamera は指定されたIDのカメラを取得する
func (m *DefaultCameraManager) GetCamera(id string) (*Camera, bool) {
	m.mu.RLock()
	e, exists := m.cameras[id]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}

	// コピーを返す
	info := e.camera.Info()
	return &info, true
}

// GetPreview は指定されたIDのカメラのMJPEG配信元を取得する
func (m *DefaultCameraManager) GetPreview(id string) (Preview, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.cameras[id]
	if !exists {
		return nil, false
	}
	return e.preview, true
}

// AddCamera はカメラを追加する。カメラは停止状態で追加される。
func (m *DefaultCameraManager) AddCamera(ctx context.Context, settings Settings) (*Camera, error) {
	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	factory, err := m.registry.Factory(settings.Generator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	preview := stream.NewBroadcaster(m.options.JPEGQuality)
	opts := []Option{
		WithLogger(m.logger.With("name", settings.Name)),
		WithAutoReconnect(m.options.AutoReconnect),
		WithSink(preview),
	}

	if settings.Loopback != "" {
		// 既に同じデバイスが登録されているかチェック
		for _, e := range m.cameras {
			if e.camera.GetSettings().Loopback == settings.Loopback {
				return nil, fmt.Errorf("%w: デバイス %s は既に使用されています", ErrInvalidSettings, settings.Loopback)
			}
		}

		// デバイスの利用可能性をチェック
		if !m.discovery.IsDeviceAvailable(ctx, settings.Loopback) {
			return nil, fmt.Errorf("%w: デバイスが利用できません: %s", ErrDevice, settings.Loopback)
		}

		sink, err := NewLoopbackSink(settings.Loopback)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSink(sink))
	}

	cam := New(settings, factory, opts...)

	m.added++
	m.cameras[cam.ID()] = &entry{camera: cam, preview: preview, order: m.added}

	m.logger.Infow("カメラを追加しました",
		"camera", cam.ID(),
		"name", settings.Name,
		"generator", settings.Generator,
		"loopback", settings.Loopback)

	info := cam.Info()
	return &info, nil
}

// RemoveCamera はカメラを停止して削除する。停止に失敗した場合は削除しない。
func (m *DefaultCameraManager) RemoveCamera(ctx context.Context, id string) error {
	cam, err := m.lookup(id)
	if err != nil {
		return err
	}

	if err := cam.Stop(ctx); err != nil {
		return fmt.Errorf("カメラの停止に失敗: %w", err)
	}

	m.mu.Lock()
	delete(m.cameras, id)
	m.mu.Unlock()

	m.logger.Infow("カメラを削除しました", "camera", id)
	return nil
}

// StartCamera はカメラを開始する
func (m *DefaultCameraManager) StartCamera(ctx context.Context, id string) error {
	cam, err := m.lookup(id)
	if err != nil {
		return err
	}
	return cam.Start(ctx)
}

// StopCamera はカメラを停止する
func (m *DefaultCameraManager) StopCamera(ctx context.Context, id string) error {
	cam, err := m.lookup(id)
	if err != nil {
		return err
	}
	return cam.Stop(ctx)
}

// RestartCamera はカメラの接続を作り直す
func (m *DefaultCameraManager) RestartCamera(ctx context.Context, id string) error {
	cam, err := m.lookup(id)
	if err != nil {
		return err
	}
	return cam.Restart(ctx)
}

// DiscoverLoopbacks は利用可能なループバックデバイスを検出する
func (m *DefaultCameraManager) DiscoverLoopbacks(ctx context.Context) ([]string, error) {
	devices, err := m.discovery.ScanDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("ループバックデバイスの検出に失敗: %w", err)
	}
	return devices, nil
}

func (m *DefaultCameraManager) lookup(id string) (*VirtualCamera, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.cameras[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.camera, nil
}

// sortedLocked は追加順に並べたエントリを返す（ロック済み前提）
func (m *DefaultCameraManager) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(m.cameras))
	for _, e := range m.cameras {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	return entries
}
