package stream

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// MJPEGWriter はmultipart/x-mixed-replace形式でJPEGを書き込む
type MJPEGWriter struct {
	mw    *multipart.Writer
	flush func()
}

// NewMJPEGWriter は新しいMJPEGWriterを作成する。flushはパートごとに呼ばれる。
func NewMJPEGWriter(w io.Writer, flush func()) *MJPEGWriter {
	if flush == nil {
		flush = func() {}
	}
	return &MJPEGWriter{mw: multipart.NewWriter(w), flush: flush}
}

// ContentType はレスポンスのContent-Typeを返す
func (m *MJPEGWriter) ContentType() string {
	return "multipart/x-mixed-replace; boundary=" + m.mw.Boundary()
}

// WritePart は1フレーム分のパートを書き込む
func (m *MJPEGWriter) WritePart(jpg []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", fmt.Sprint(len(jpg)))

	part, err := m.mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(jpg); err != nil {
		return err
	}
	m.flush()
	return nil
}

// Close は終端の境界を書き込む
func (m *MJPEGWriter) Close() error {
	return m.mw.Close()
}

// Serve はframesが閉じられるかctxが終了するまでパートを書き込む。
// framesが閉じられた場合は終端の境界も書き込む。
func (m *MJPEGWriter) Serve(ctx context.Context, frames <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case jpg, ok := <-frames:
			if !ok {
				return m.Close()
			}
			if err := m.WritePart(jpg); err != nil {
				return err
			}
		}
	}
}
