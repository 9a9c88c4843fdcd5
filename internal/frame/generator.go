package frame

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
)

const (
	// BytesPerPixel はRGB32の1ピクセルあたりのバイト数
	BytesPerPixel = 4

	// TicksPerSecond はメディア時間 (100ナノ秒単位) の1秒あたりのティック数
	TicksPerSecond = 10_000_000

	// MaxDimension は幅・高さの上限
	MaxDimension = 4096
)

// ErrInvalidSize は幅または高さが不正な場合のエラー
var ErrInvalidSize = errors.New("無効なフレームサイズ")

// Generator は1接続分のフレームを生成する
type Generator interface {
	// CreateFrame はtsのフレームをwへちょうどnバイト書き込む。
	// 書き込み量が合わない場合、その接続は復旧できない。
	CreateFrame(ctx context.Context, ts int64, w io.Writer, n int) error
}

// Factory は接続ごとにGeneratorを作成する
type Factory interface {
	CreateFrameGenerator(width, height uint16) (Generator, error)
}

// FactoryFunc は関数をFactoryとして扱うためのアダプター
type FactoryFunc func(width, height uint16) (Generator, error)

// CreateFrameGenerator はf(width, height)を呼び出す
func (f FactoryFunc) CreateFrameGenerator(width, height uint16) (Generator, error) {
	return f(width, height)
}

// Format はフレームの寸法とフレームレート
type Format struct {
	Width  int
	Height int
	FPS    int
}

// Size はRGB32でのフレームのバイト数を返す
func (f Format) Size() int {
	return Size(f.Width, f.Height)
}

// Frame は生成済みのRGB32フレーム。
// Dataはシンクへの受け渡し中のみ有効で、保持する場合はコピーすること。
type Frame struct {
	Format    Format
	Timestamp int64 // 接続開始からの100ナノ秒単位
	Data      []byte
}

// Size は幅w、高さhのRGB32フレームのバイト数を返す
func Size(w, h int) int {
	return w * h * BytesPerPixel
}

// ValidateSize は幅と高さの妥当性を検証する
func ValidateSize(width, height int) error {
	if width <= 0 || width > MaxDimension {
		return fmt.Errorf("%w: 幅 %d", ErrInvalidSize, width)
	}
	if height <= 0 || height > MaxDimension {
		return fmt.Errorf("%w: 高さ %d", ErrInvalidSize, height)
	}
	return nil
}

// ToRGB32 はsrcをB,G,R,Xの順でdstに書き込み、書き込んだバイト数を返す
func ToRGB32(dst []byte, src *image.RGBA) int {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	o := 0
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for i := 0; i+3 < len(row) && o+3 < len(dst); i += 4 {
			dst[o] = row[i+2]
			dst[o+1] = row[i+1]
			dst[o+2] = row[i]
			dst[o+3] = 0xFF
			o += 4
		}
	}
	return o
}

// FromRGB32 はRGB32のsrcをdstへ展開する。dstの寸法で読み取る。
func FromRGB32(dst *image.RGBA, src []byte) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	o := 0
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for i := 0; i+3 < len(row) && o+3 < len(src); i += 4 {
			row[i] = src[o+2]
			row[i+1] = src[o+1]
			row[i+2] = src[o]
			row[i+3] = 0xFF
			o += 4
		}
	}
}

var zeros [4096]byte

// WriteExactly はbufをwへちょうどnバイト書き込む。
// bufが長ければ切り詰め、短ければ残りをゼロで埋める。
func WriteExactly(w io.Writer, buf []byte, n int) error {
	if n < 0 {
		return fmt.Errorf("負のバイト数: %d", n)
	}
	head := min(n, len(buf))
	if _, err := w.Write(buf[:head]); err != nil {
		return err
	}
	for rest := n - head; rest > 0; {
		k := min(rest, len(zeros))
		if _, err := w.Write(zeros[:k]); err != nil {
			return err
		}
		rest -= k
	}
	return nil
}
