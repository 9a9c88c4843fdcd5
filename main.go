// Package main は回転する円弧を映す仮想カメラのデモです
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"vcam/internal/camera"
	"vcam/internal/frame"
	"vcam/internal/logging"
	"vcam/internal/server"
	"vcam/internal/stream"
)

const (
	cameraName  = "Go VCam"
	frameWidth  = 1920
	frameHeight = 1080
	frameRate   = 30
	previewAddr = "127.0.0.1:8554"
)

func main() {
	logger, err := logging.New(os.Getenv("VCAM_DEBUG") != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの作成に失敗しました: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	stdin := bufio.NewReader(os.Stdin)
	waitEnter := func() { _, _ = stdin.ReadString('\n') }

	fmt.Println("This program demonstrates how to create a virtual camera in Go.")
	fmt.Println("Press <Enter> to start a virtual camera.")
	waitEnter()

	// プレビュー配信とループバック出力をシンクにする
	preview := stream.NewBroadcaster(stream.DefaultQuality)
	opts := []camera.Option{
		camera.WithLogger(logger),
		camera.WithSink(preview),
	}
	if sink := findLoopback(logger); sink != nil {
		opts = append(opts, camera.WithSink(sink))
	}

	// 表示名とフレームサイズ (1080p)
	cam := camera.New(camera.Settings{
		Name:   cameraName,
		FPS:    frameRate,
		Width:  frameWidth,
		Height: frameHeight,
	}, newConsoleFactory(), opts...)

	previewServer := &http.Server{
		Addr:              previewAddr,
		Handler:           server.NewPreviewHandler(cameraName, preview),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := previewServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warnw("プレビューサーバーを起動できません", "addr", previewAddr, "error", err)
		}
	}()

	ctx := context.Background()
	if err := cam.Start(ctx); err == nil {
		fmt.Println("Camera started successfully, you can now use it in other programs.")
		fmt.Printf("Preview: http://%s/\n", previewAddr)
		fmt.Println("Press <Enter> to stop the virtual camera.")
		waitEnter()

		if err := cam.Stop(ctx); err == nil {
			fmt.Println("Camera stopped successfully, it is now no longer available.")
		} else {
			logger.Debugw("停止に失敗しました", "error", err)
			fmt.Printf("Failed to stop camera. Error code: %x\n", camera.Code(err))
		}
	} else {
		logger.Debugw("開始に失敗しました", "error", err)
		fmt.Printf("Failed to start camera. Error code: %x\n", camera.Code(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = previewServer.Shutdown(shutdownCtx)

	fmt.Println("Press <Enter> to close the application.")
	waitEnter()
}

// newConsoleFactory はジェネレーター作成をコンソールに表示するファクトリーを返す
func newConsoleFactory() frame.Factory {
	arc := frame.NewArcFactory(frameRate, frame.DefaultText, nil)
	return frame.FactoryFunc(func(width, height uint16) (frame.Generator, error) {
		fmt.Printf("Creating frame generator with %dx%d pixels.\n", width, height)
		return arc.CreateFrameGenerator(width, height)
	})
}

// findLoopback は最初に見つかったv4l2loopbackデバイスのシンクを返す
func findLoopback(logger *zap.SugaredLogger) camera.Sink {
	devices, err := camera.NewLoopbackDiscovery().ScanDevices(context.Background())
	if err != nil || len(devices) == 0 {
		logger.Debugw("ループバックデバイスがありません", "error", err)
		return nil
	}

	sink, err := camera.NewLoopbackSink(devices[0])
	if err != nil {
		logger.Infow("ループバック出力を使用しません", "device", devices[0], "error", err)
		return nil
	}

	fmt.Printf("Publishing to %s\n", devices[0])
	return sink
}
