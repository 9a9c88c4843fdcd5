package frame

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// SMPTEカラーバーの7本 (R, G, B)
var barColors = [7][3]uint8{
	{192, 192, 192}, // Gray
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
}

// ColorBarsGenerator はカラーバーの上を白い縦線が横切るテストパターンを生成する
type ColorBarsGenerator struct {
	*Throttle

	width  int
	height int
	base   []byte // 描画済みのカラーバー
	buf    []byte
	marker int
}

// NewColorBarsGenerator は指定サイズのColorBarsGeneratorを作成する
func NewColorBarsGenerator(width, height uint16, fps int) (*ColorBarsGenerator, error) {
	w, h := int(width), int(height)
	if err := ValidateSize(w, h); err != nil {
		return nil, err
	}

	g := &ColorBarsGenerator{
		Throttle: NewThrottle(fps),
		width:    w,
		height:   h,
		base:     make([]byte, Size(w, h)),
		buf:      make([]byte, Size(w, h)),
	}
	g.fillBars()
	return g, nil
}

func (g *ColorBarsGenerator) fillBars() {
	barWidth := max(g.width/len(barColors), 1)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			idx := min(x/barWidth, len(barColors)-1)
			c := barColors[idx]
			i := (y*g.width + x) * BytesPerPixel
			g.base[i] = c[2]
			g.base[i+1] = c[1]
			g.base[i+2] = c[0]
			g.base[i+3] = 0xFF
		}
	}
}

// CreateFrame はカラーバーに現在位置の縦線を重ねてwへちょうどnバイト書き込む
func (g *ColorBarsGenerator) CreateFrame(ctx context.Context, ts int64, w io.Writer, n int) error {
	if err := g.ThrottleFrameRate(ctx, ts); err != nil {
		return err
	}

	copy(g.buf, g.base)
	for y := 0; y < g.height; y++ {
		i := (y*g.width + g.marker) * BytesPerPixel
		g.buf[i], g.buf[i+1], g.buf[i+2] = 0xFF, 0xFF, 0xFF
	}
	if err := WriteExactly(w, g.buf, n); err != nil {
		return err
	}

	g.marker = (g.marker + 1) % g.width
	return nil
}

// Marker は次のフレームで縦線を描くx座標を返す
func (g *ColorBarsGenerator) Marker() int {
	return g.marker
}

// ColorBarsFactory はColorBarsGeneratorを作成するファクトリー
type ColorBarsFactory struct {
	FPS    int
	Logger *zap.SugaredLogger
}

// CreateFrameGenerator は接続ごとに新しいColorBarsGeneratorを返す
func (f *ColorBarsFactory) CreateFrameGenerator(width, height uint16) (Generator, error) {
	if f.Logger != nil {
		f.Logger.Infof("creating color bars generator with %dx%d pixels", width, height)
	}
	return NewColorBarsGenerator(width, height, f.FPS)
}
