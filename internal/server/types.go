package server

import (
	"fmt"
	"time"

	"vcam/internal/camera"
)

// HealthResponse は /health のレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerInfo はサーバーのリッスン情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StatusResponse は /api/status のレスポンス
type StatusResponse struct {
	Status     string     `json:"status"`
	Server     ServerInfo `json:"server"`
	Cameras    int        `json:"cameras"`
	Active     int        `json:"active"`
	Generators []string   `json:"generators"`
	Loopbacks  []string   `json:"loopbacks"`
	Timestamp  time.Time  `json:"timestamp"`
}

// CameraSettings はカメラの出力形式
type CameraSettings struct {
	FPS    int `json:"fps"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CameraInfo はカメラ1台分の情報
type CameraInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Generator   string         `json:"generator"`
	Loopback    string         `json:"loopback,omitempty"`
	Status      camera.Status  `json:"status"`
	Settings    CameraSettings `json:"settings"`
	Connections int            `json:"connections"`
	Frames      uint64         `json:"frames"`
	LastFrame   *time.Time     `json:"last_frame,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
}

// CamerasResponse は /api/cameras のレスポンス
type CamerasResponse struct {
	Cameras []CameraInfo `json:"cameras"`
}

// ControlResponse は開始・停止・再起動の結果
type ControlResponse struct {
	Code   string        `json:"code"`
	Status camera.Status `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// toCameraInfo はカメラ情報をレスポンス形式に変換する
func toCameraInfo(cam camera.Camera) CameraInfo {
	info := CameraInfo{
		ID:        cam.ID,
		Name:      cam.Name,
		Generator: string(cam.Generator),
		Loopback:  cam.Loopback,
		Status:    cam.Status,
		Settings: CameraSettings{
			FPS:    cam.FPS,
			Width:  cam.Width,
			Height: cam.Height,
		},
		Connections: cam.Connections,
		Frames:      cam.Frames,
		LastError:   cam.LastError,
	}
	if !cam.LastFrame.IsZero() {
		last := cam.LastFrame
		info.LastFrame = &last
	}
	return info
}

// formatCode は結果コードを16進文字列にする
func formatCode(code uint32) string {
	return fmt.Sprintf("0x%08X", code)
}
