package frame

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// フォントDPI (Windowsの標準値に合わせる)
const fontDPI = 96

var parseGoRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// NewFace は埋め込みのGo Regularフォントからsizeポイントのフェイスを作成する。
// font.Faceはスレッドセーフではないため、ジェネレーターごとに作成すること。
func NewFace(size float64) (font.Face, error) {
	parsed, err := parseGoRegular()
	if err != nil {
		return nil, fmt.Errorf("フォントの解析に失敗: %w", err)
	}
	if size < 1 {
		size = 1
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("フォントフェイスの作成に失敗: %w", err)
	}
	return face, nil
}
