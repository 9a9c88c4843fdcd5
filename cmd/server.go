// Package main はvcamサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"vcam/internal/camera"
	"vcam/internal/config"
	"vcam/internal/frame"
	"vcam/internal/logging"
	"vcam/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		host = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		help = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("vcam")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("環境変数:")
		fmt.Println("  VCAM_CONFIG  YAML設定ファイルのパス")
		fmt.Println("  VCAM_NAME, VCAM_WIDTH, VCAM_HEIGHT, VCAM_FPS, VCAM_GENERATOR, VCAM_LOOPBACK")
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの作成に失敗しました: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// カメラマネージャーを作成
	// ジェネレーターの上限は最も速いカメラに合わせる
	maxFPS := cfg.Camera.DefaultFPS
	for _, dev := range cfg.Camera.Devices {
		maxFPS = max(maxFPS, dev.FPS)
	}
	registry := frame.NewRegistry(maxFPS, logger)
	manager := camera.NewDefaultCameraManager(registry, camera.NewLoopbackDiscovery(), logger, cfg.ManagerOptions())

	for _, dev := range cfg.Camera.Devices {
		cam, err := manager.AddCamera(ctx, dev.Settings())
		if err != nil {
			logger.Errorw("カメラを追加できません", "name", dev.Name, "error", err)
			continue
		}
		if !dev.StartOnBoot() {
			continue
		}
		if err := manager.StartCamera(ctx, cam.ID); err != nil {
			logger.Errorw("カメラを開始できません",
				"name", dev.Name, "code", fmt.Sprintf("%x", camera.Code(err)), "error", err)
		}
	}

	// サーバーを作成
	srv := server.New(cfg, manager, registry, logger)

	// サーバーを起動
	logger.Infof("vcam サーバーを起動します: %s", cfg.ServerAddress())
	serveErr := srv.Start(ctx)

	if err := manager.Stop(context.Background()); err != nil {
		logger.Errorw("カメラの停止に失敗しました", "error", err)
	}

	if serveErr != nil {
		logger.Errorw("サーバーの起動に失敗しました", "error", serveErr)
		_ = logger.Sync()
		os.Exit(1)
	}
}
