package camera

import (
	"context"
	"time"

	"vcam/internal/frame"
)

// Status はカメラの動作状態を表す
type Status string

const (
	StatusInactive Status = "inactive" // カメラは停止中
	StatusActive   Status = "active"   // カメラは動作中
	StatusError    Status = "error"    // 接続が壊れている
)

// Camera は仮想カメラの情報を表す
type Camera struct {
	ID          string     // カメラの一意識別子
	Name        string     // カメラの表示名
	Generator   frame.Kind // ジェネレーターの種類
	Loopback    string     // 出力先のループバックデバイス（空なら無し）
	FPS         int        // フレームレート
	Width       int        // 画像幅
	Height      int        // 画像高さ
	Status      Status     // 現在の状態
	Connections int        // ファクトリーを呼び出した回数
	Frames      uint64     // 現在の接続で配信したフレーム数
	LastFrame   time.Time  // 最後にフレームを配信した時刻
	LastError   string     // 最後に接続を壊したエラー
}

// Settings はカメラの設定を表す
type Settings struct {
	Name      string     // 表示名
	FPS       int        // フレームレート
	Width     int        // 画像幅
	Height    int        // 画像高さ
	Generator frame.Kind // ジェネレーターの種類（Managerのみ使用）
	Loopback  string     // ループバックデバイス（Managerのみ使用）
}

// Format はフレーム形式を返す
func (s Settings) Format() frame.Format {
	return frame.Format{Width: s.Width, Height: s.Height, FPS: s.FPS}
}

// Sink は生成されたフレームの出力先
type Sink interface {
	// Open はカメラ開始時に呼ばれる
	Open(format frame.Format) error

	// WriteFrame はフレームごとに呼ばれる。f.Dataは呼び出し中のみ有効。
	WriteFrame(f frame.Frame) error

	// Close はカメラ停止時に呼ばれる
	Close() error
}

// Manager は複数の仮想カメラを管理するインターフェース
type Manager interface {
	// Stop は全てのカメラを停止する
	Stop(ctx context.Context) error

	// GetCameras は現在管理されているカメラ一覧を取得する
	GetCameras() []Camera

	// GetCamera は指定されたIDのカメラを取得する
	GetCamera(id string) (*Camera, bool)

	// GetPreview は指定されたIDのカメラのMJPEG配信元を取得する
	GetPreview(id string) (Preview, bool)

	// AddCamera はカメラを追加する
	AddCamera(ctx context.Context, settings Settings) (*Camera, error)

	// RemoveCamera はカメラを削除する
	RemoveCamera(ctx context.Context, id string) error

	// StartCamera はカメラを開始する
	StartCamera(ctx context.Context, id string) error

	// StopCamera はカメラを停止する
	StopCamera(ctx context.Context, id string) error

	// RestartCamera はフレームサーバーの再起動と同様に接続を作り直す
	RestartCamera(ctx context.Context, id string) error

	// DiscoverLoopbacks は利用可能なループバックデバイスを検出する
	DiscoverLoopbacks(ctx context.Context) ([]string, error)
}

// Preview はMJPEGプレビューの配信元
type Preview interface {
	Subscribe() (<-chan []byte, func())
	Snapshot() ([]byte, error)
}

// Discovery はループバックデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices は利用可能なループバックデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// DeviceInfo はデバイスの詳細情報を表す
type DeviceInfo struct {
	Device  string   // デバイスパス
	Name    string   // デバイス名
	Driver  string   // ドライバー名
	Formats []string // 受け付けるフォーマット
}
