//go:build linux

package camera

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"vcam/internal/frame"
)

const (
	v4l2BufTypeVideoOutput uint32 = 2
	v4l2FieldNone          uint32 = 1
	v4l2ColorspaceSRGB     uint32 = 8
)

// V4L2_PIX_FMT_XBGR32: メモリ上でB, G, R, X
var v4l2PixFmtXBGR32 = fourcc('X', 'R', '2', '4')

type v4l2PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YcbcrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

// v4l2Format はstruct v4l2_format。共用体はポインタ境界に揃う。
type v4l2Format struct {
	Type uint32
	_    [unsafe.Sizeof(uintptr(0)) - 4]byte
	Fmt  [200]byte
}

var vidiocSFmt = iowr('V', 5, unsafe.Sizeof(v4l2Format{}))

func iowr(t, nr, size uintptr) uintptr {
	return 3<<30 | size<<16 | t<<8 | nr
}

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// LoopbackSink はv4l2loopbackデバイスへRGB32フレームを書き込むシンク
type LoopbackSink struct {
	device string

	mu   sync.Mutex
	file *os.File
}

// NewLoopbackSink は新しいLoopbackSinkを作成する。デバイスはOpenで開く。
func NewLoopbackSink(device string) (Sink, error) {
	if device == "" {
		return nil, fmt.Errorf("%w: デバイスパスが空です", ErrDevice)
	}
	return &LoopbackSink{device: device}, nil
}

// Open はデバイスを開いて出力形式を設定する
func (s *LoopbackSink) Open(format frame.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.device, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%s を開けません: %w", s.device, err)
	}

	if err := setOutputFormat(file.Fd(), format); err != nil {
		_ = file.Close()
		return fmt.Errorf("%s の形式設定に失敗: %w", s.device, err)
	}

	s.file = file
	return nil
}

// WriteFrame はフレームをデバイスへ書き込む
func (s *LoopbackSink) WriteFrame(f frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("%s は開かれていません", s.device)
	}
	_, err := s.file.Write(f.Data)
	return err
}

// Close はデバイスを閉じる
func (s *LoopbackSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func setOutputFormat(fd uintptr, format frame.Format) error {
	pix := v4l2PixFormat{
		Width:        uint32(format.Width),
		Height:       uint32(format.Height),
		PixelFormat:  v4l2PixFmtXBGR32,
		Field:        v4l2FieldNone,
		BytesPerLine: uint32(format.Width * frame.BytesPerPixel),
		SizeImage:    uint32(format.Size()),
		Colorspace:   v4l2ColorspaceSRGB,
	}

	f := v4l2Format{Type: v4l2BufTypeVideoOutput}
	*(*v4l2PixFormat)(unsafe.Pointer(&f.Fmt[0])) = pix

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, vidiocSFmt, uintptr(unsafe.Pointer(&f)))
	if errno != 0 {
		return errno
	}
	return nil
}
