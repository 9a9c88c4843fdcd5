package server

import (
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	"vcam/internal/camera"
)

const previewPage = `<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <title>%s</title>
</head>
<body style="margin:0;background:#000">
    <img src="/stream" style="width:100%%;height:auto" alt="%s">
</body>
</html>`

// NewPreviewHandler は1台のカメラのプレビューを配信するハンドラを作成する。
// / でビューア、/stream でMJPEG、/snapshot でJPEGを返す。
func NewPreviewHandler(name string, preview camera.Preview) http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		title := html.EscapeString(name)
		c.String(http.StatusOK, previewPage, title, title)
	})
	engine.GET("/stream", func(c *gin.Context) {
		serveMJPEG(c, preview)
	})
	engine.GET("/snapshot", func(c *gin.Context) {
		serveSnapshot(c, preview)
	})

	return engine
}
