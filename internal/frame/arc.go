package frame

import (
	"context"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"

	"vcam/internal/logging"
)

// DefaultText は円の中央に描画するテキスト
const DefaultText = "Hello Go\nCamera"

const (
	arcSweep  = 135 // 円弧の角度 (度)
	angleStep = 12  // 1フレームあたりの回転量 (度)
	penWidth  = 20
)

var (
	arcBackground = color.RGBA{0x48, 0x3D, 0x8B, 0xFF} // DarkSlateBlue
	arcPen        = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF} // White
	arcText       = color.RGBA{0xF5, 0xF5, 0xF5, 0xFF} // WhiteSmoke
)

// ArcGenerator は回転する円弧と中央のテキストを描画するジェネレーター
type ArcGenerator struct {
	*Throttle

	width  int
	height int
	text   string

	// 描画資源は生成時に確保する
	img    *image.RGBA
	dc     *gg.Context
	face   font.Face
	circle image.Rectangle
	buf    []byte

	angle int
}

// NewArcGenerator は指定サイズのArcGeneratorを作成する
func NewArcGenerator(width, height uint16, fps int, text string) (*ArcGenerator, error) {
	w, h := int(width), int(height)
	if err := ValidateSize(w, h); err != nil {
		return nil, err
	}

	side := min(w, h) / 2
	diffX := (w - side) / 2
	diffY := (h - side) / 2

	face, err := NewFace(float64(side) / 10)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	dc := gg.NewContextForRGBA(img)
	dc.SetLineWidth(penWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetFontFace(face)

	return &ArcGenerator{
		Throttle: NewThrottle(fps),
		width:    w,
		height:   h,
		text:     text,
		img:      img,
		dc:       dc,
		face:     face,
		circle:   image.Rect(diffX, diffY, diffX+side, diffY+side),
		buf:      make([]byte, Size(w, h)),
	}, nil
}

// CreateFrame は次のフレームを描画してwへちょうどnバイト書き込む
func (g *ArcGenerator) CreateFrame(ctx context.Context, ts int64, w io.Writer, n int) error {
	if err := g.ThrottleFrameRate(ctx, ts); err != nil {
		return err
	}

	g.draw()
	ToRGB32(g.buf, g.img)
	if err := WriteExactly(w, g.buf, n); err != nil {
		return err
	}

	g.angle = (g.angle + angleStep) % 360
	return nil
}

func (g *ArcGenerator) draw() {
	dc := g.dc
	dc.SetColor(arcBackground)
	dc.Clear()

	cx := float64(g.circle.Min.X+g.circle.Max.X) / 2
	cy := float64(g.circle.Min.Y+g.circle.Max.Y) / 2
	r := float64(g.circle.Dx()) / 2

	dc.SetColor(arcPen)
	dc.DrawArc(cx, cy, r, gg.Radians(float64(g.angle)), gg.Radians(float64(g.angle+arcSweep)))
	dc.Stroke()

	dc.SetColor(arcText)
	dc.DrawStringWrapped(g.text, cx, cy, 0.5, 0.5, float64(g.circle.Dx()), 1.2, gg.AlignCenter)
}

// Angle は次のフレームで使う円弧の開始角度 (度) を返す
func (g *ArcGenerator) Angle() int {
	return g.angle
}

// BufferSize はコピー用バッファのバイト数を返す
func (g *ArcGenerator) BufferSize() int {
	return len(g.buf)
}

// Close はフォントフェイスを解放する
func (g *ArcGenerator) Close() error {
	return g.face.Close()
}

// ArcFactory はArcGeneratorを作成するファクトリー
type ArcFactory struct {
	FPS    int
	Text   string
	Logger *zap.SugaredLogger
}

// NewArcFactory は新しいArcFactoryを作成する
func NewArcFactory(fps int, text string, logger *zap.SugaredLogger) *ArcFactory {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ArcFactory{FPS: fps, Text: text, Logger: logger}
}

// CreateFrameGenerator は接続ごとに新しいArcGeneratorを返す
func (f *ArcFactory) CreateFrameGenerator(width, height uint16) (Generator, error) {
	if f.Logger != nil {
		f.Logger.Infof("creating frame generator with %dx%d pixels", width, height)
	}
	return NewArcGenerator(width, height, f.FPS, f.Text)
}
