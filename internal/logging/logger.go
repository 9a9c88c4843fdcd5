// Package logging はアプリケーション共通のロガーを構築する
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はロガーを作成する。debugがtrueなら開発用の設定を使う。
func New(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの作成に失敗: %w", err)
	}
	return logger.Sugar(), nil
}

// Nop は何も出力しないロガーを返す
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
