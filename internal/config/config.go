package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"vcam/internal/camera"
	"vcam/internal/frame"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server"`
	Camera CameraConfig `yaml:"camera"`
	Debug  bool         `yaml:"debug"` // 開発用ログを出力する
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	// 複数カメラ対応のための設定
	Devices []CameraDevice `yaml:"devices"`

	// デフォルト設定
	DefaultFPS    int `yaml:"default_fps"`    // フレームレート (fps)
	DefaultWidth  int `yaml:"default_width"`  // 画像幅
	DefaultHeight int `yaml:"default_height"` // 画像高さ

	AutoReconnect bool `yaml:"auto_reconnect"` // 壊れた接続を作り直す
	JPEGQuality   int  `yaml:"jpeg_quality"`   // プレビューのJPEG品質 (1-100)
}

// CameraDevice は個別カメラの設定
type CameraDevice struct {
	Name      string `yaml:"name"`      // カメラ名
	Generator string `yaml:"generator"` // ジェネレーター (arc, colorbars)
	Loopback  string `yaml:"loopback"`  // v4l2loopbackデバイス (例: /dev/video10)
	AutoStart *bool  `yaml:"autostart"` // 起動時に開始する（既定: true）

	// カメラ固有の設定（デフォルト値より優先）
	FPS    int `yaml:"fps"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// StartOnBoot は起動時に開始するかを返す
func (d CameraDevice) StartOnBoot() bool {
	return d.AutoStart == nil || *d.AutoStart
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Devices: []CameraDevice{
				{Name: "Go VCam", Generator: string(frame.KindArc)},
			},
			DefaultFPS:    30,
			DefaultWidth:  1920,
			DefaultHeight: 1080,
			AutoReconnect: true,
			JPEGQuality:   80,
		},
	}
}

// Load は設定を読み込む。
// デフォルト値、VCAM_CONFIGのYAMLファイル、環境変数の順に上書きする。
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("VCAM_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile はYAMLファイルの内容で上書きする
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイル %s の解析に失敗: %w", path, err)
	}
	return nil
}

// applyEnv は環境変数で上書きする。カメラの値は1台目に適用する。
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Debug = getEnvAsBoolOrDefault("VCAM_DEBUG", c.Debug)

	if len(c.Camera.Devices) == 0 {
		return
	}
	dev := &c.Camera.Devices[0]
	dev.Name = getEnvOrDefault("VCAM_NAME", dev.Name)
	dev.Generator = getEnvOrDefault("VCAM_GENERATOR", dev.Generator)
	dev.Loopback = getEnvOrDefault("VCAM_LOOPBACK", dev.Loopback)
	dev.FPS = getEnvAsIntOrDefault("VCAM_FPS", dev.FPS)
	dev.Width = getEnvAsIntOrDefault("VCAM_WIDTH", dev.Width)
	dev.Height = getEnvAsIntOrDefault("VCAM_HEIGHT", dev.Height)
}

// applyDefaults は個別カメラの未設定値をデフォルト値で埋める
func (c *Config) applyDefaults() {
	for i := range c.Camera.Devices {
		dev := &c.Camera.Devices[i]
		if dev.Generator == "" {
			dev.Generator = string(frame.KindArc)
		}
		if dev.FPS == 0 {
			dev.FPS = c.Camera.DefaultFPS
		}
		if dev.Width == 0 {
			dev.Width = c.Camera.DefaultWidth
		}
		if dev.Height == 0 {
			dev.Height = c.Camera.DefaultHeight
		}
	}
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	if len(c.Camera.Devices) == 0 {
		return fmt.Errorf("カメラが設定されていません")
	}

	if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
		return fmt.Errorf("無効なJPEG品質: %d", c.Camera.JPEGQuality)
	}

	names := make(map[string]bool)
	loopbacks := make(map[string]bool)
	for i, dev := range c.Camera.Devices {
		if dev.Name == "" {
			return fmt.Errorf("カメラ %d: 名前が空です", i)
		}
		if names[dev.Name] {
			return fmt.Errorf("カメラ名が重複しています: %s", dev.Name)
		}
		names[dev.Name] = true

		if dev.Loopback != "" {
			if loopbacks[dev.Loopback] {
				return fmt.Errorf("ループバックデバイスが重複しています: %s", dev.Loopback)
			}
			loopbacks[dev.Loopback] = true
		}

		switch frame.Kind(dev.Generator) {
		case frame.KindArc, frame.KindColorBars:
		default:
			return fmt.Errorf("カメラ %s: 未対応のジェネレーター: %s", dev.Name, dev.Generator)
		}

		if dev.FPS < 1 || dev.FPS > 60 {
			return fmt.Errorf("カメラ %s: 無効なFPS値: %d", dev.Name, dev.FPS)
		}
		if err := frame.ValidateSize(dev.Width, dev.Height); err != nil {
			return fmt.Errorf("カメラ %s: %w", dev.Name, err)
		}
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Settings は個別カメラの設定をカメラの設定に変換する
func (d CameraDevice) Settings() camera.Settings {
	return camera.Settings{
		Name:      d.Name,
		FPS:       d.FPS,
		Width:     d.Width,
		Height:    d.Height,
		Generator: frame.Kind(d.Generator),
		Loopback:  d.Loopback,
	}
}

// ManagerOptions はカメラマネージャーの設定を返す
func (c *Config) ManagerOptions() camera.ManagerOptions {
	return camera.ManagerOptions{
		AutoReconnect: c.Camera.AutoReconnect,
		JPEGQuality:   c.Camera.JPEGQuality,
	}
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は環境変数を真偽値として取得する
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	default:
		return defaultValue
	}
}
