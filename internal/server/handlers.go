package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vcam/internal/camera"
	"vcam/internal/config"
	"vcam/internal/frame"
	"vcam/internal/stream"
)

// VCamHandler はHTTPエンドポイントの実装
type VCamHandler struct {
	config        *config.Config
	cameraManager camera.Manager
	registry      *frame.Registry
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *VCamHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *VCamHandler) GetStatus(c *gin.Context) {
	cameras := h.cameraManager.GetCameras()

	active := 0
	for _, cam := range cameras {
		if cam.Status == camera.StatusActive {
			active++
		}
	}

	var generators []string
	for _, kind := range h.registry.Kinds() {
		generators = append(generators, string(kind))
	}

	// 検出に失敗しても状態は返す
	loopbacks, _ := h.cameraManager.DiscoverLoopbacks(c.Request.Context())
	if loopbacks == nil {
		loopbacks = []string{}
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		Cameras:    len(cameras),
		Active:     active,
		Generators: generators,
		Loopbacks:  loopbacks,
		Timestamp:  time.Now(),
	})
}

// GetCameras はカメラ一覧取得エンドポイントの実装
func (h *VCamHandler) GetCameras(c *gin.Context) {
	managed := h.cameraManager.GetCameras()
	cameras := make([]CameraInfo, 0, len(managed))
	for _, cam := range managed {
		cameras = append(cameras, toCameraInfo(cam))
	}

	c.JSON(http.StatusOK, CamerasResponse{Cameras: cameras})
}

// GetCamera はカメラ1台の情報取得エンドポイントの実装
func (h *VCamHandler) GetCamera(c *gin.Context) {
	cam, found := h.cameraManager.GetCamera(c.Param("id"))
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, toCameraInfo(*cam))
}

// StartCamera はカメラ開始エンドポイントの実装
func (h *VCamHandler) StartCamera(c *gin.Context) {
	h.control(c, h.cameraManager.StartCamera)
}

// StopCamera はカメラ停止エンドポイントの実装
func (h *VCamHandler) StopCamera(c *gin.Context) {
	h.control(c, h.cameraManager.StopCamera)
}

// RestartCamera はカメラ再起動エンドポイントの実装
func (h *VCamHandler) RestartCamera(c *gin.Context) {
	h.control(c, h.cameraManager.RestartCamera)
}

// control は開始・停止・再起動を実行し、結果コードを返す
func (h *VCamHandler) control(c *gin.Context, op func(ctx context.Context, id string) error) {
	id := c.Param("id")
	err := op(c.Request.Context(), id)

	response := ControlResponse{Code: formatCode(camera.Code(err))}
	if cam, found := h.cameraManager.GetCamera(id); found {
		response.Status = cam.Status
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(statusFor(err), response)
}

// GetCameraStream はMJPEGストリーミングエンドポイントの実装
func (h *VCamHandler) GetCameraStream(c *gin.Context) {
	id := c.Param("id")

	// カメラIDの存在確認
	cam, found := h.cameraManager.GetCamera(id)
	if !found {
		notFound(c)
		return
	}

	// カメラがアクティブか確認
	if cam.Status != camera.StatusActive {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:     "camera_not_active",
			Message:   "カメラがアクティブではありません",
			Timestamp: time.Now(),
		})
		return
	}

	preview, _ := h.cameraManager.GetPreview(id)
	serveMJPEG(c, preview)
}

// GetCameraSnapshot は最新フレームのJPEGを返すエンドポイントの実装
func (h *VCamHandler) GetCameraSnapshot(c *gin.Context) {
	preview, found := h.cameraManager.GetPreview(c.Param("id"))
	if !found {
		notFound(c)
		return
	}
	serveSnapshot(c, preview)
}

// serveMJPEG はプレビューのフレームをクライアントが切断するまで配信する
func serveMJPEG(c *gin.Context, preview camera.Preview) {
	frames, cancel := preview.Subscribe()
	defer cancel()

	mjpeg := stream.NewMJPEGWriter(c.Writer, c.Writer.Flush)

	// レスポンスヘッダーを設定
	c.Header("Content-Type", mjpeg.ContentType())
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	// クライアント切断で終了する
	_ = mjpeg.Serve(c.Request.Context(), frames)
}

// serveSnapshot は最新フレームを1枚返す
func serveSnapshot(c *gin.Context, preview camera.Preview) {
	jpg, err := preview.Snapshot()
	if errors.Is(err, stream.ErrNoFrame) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:     "no_frame",
			Message:   "まだフレームがありません",
			Timestamp: time.Now(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "encode_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", jpg)
}

// ヘルパー関数

// notFound はカメラが見つからない場合のレスポンスを返す
func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:     "camera_not_found",
		Message:   "指定されたカメラが見つかりません",
		Timestamp: time.Now(),
	})
}

// statusFor はエラーをHTTPステータスに変換する
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, camera.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, camera.ErrAlreadyStarted), errors.Is(err, camera.ErrNotStarted):
		return http.StatusConflict
	case errors.Is(err, camera.ErrInvalidSettings):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
