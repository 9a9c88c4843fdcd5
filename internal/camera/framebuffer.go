package camera

import (
	"fmt"
)

// frameBuffer は1フレーム分の固定長バッファ。容量を超える書き込みは拒否する。
type frameBuffer struct {
	data     []byte
	n        int
	overflow bool
}

func newFrameBuffer(size int) *frameBuffer {
	return &frameBuffer{data: make([]byte, size)}
}

// Write は容量に収まる分だけ書き込み、超えた場合はErrFrameSizeを返す
func (b *frameBuffer) Write(p []byte) (int, error) {
	if b.n+len(p) > len(b.data) {
		k := copy(b.data[b.n:], p)
		b.n += k
		b.overflow = true
		return k, fmt.Errorf("%w: 容量 %d バイトを超えました", ErrFrameSize, len(b.data))
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

// Reset は書き込み位置を先頭に戻す
func (b *frameBuffer) Reset() {
	b.n = 0
	b.overflow = false
}

// Cap はフレームのバイト数を返す
func (b *frameBuffer) Cap() int {
	return len(b.data)
}

// Complete はちょうど1フレーム分が書き込まれたか確認する
func (b *frameBuffer) Complete() error {
	if b.overflow || b.n != len(b.data) {
		return fmt.Errorf("%w: %d / %d バイト", ErrFrameSize, b.n, len(b.data))
	}
	return nil
}

// Bytes はフレームのデータを返す
func (b *frameBuffer) Bytes() []byte {
	return b.data[:b.n]
}
