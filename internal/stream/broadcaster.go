// Package stream は生成されたフレームをMJPEGとして配信する
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"vcam/internal/frame"
)

// DefaultQuality はJPEGエンコードの既定品質
const DefaultQuality = 80

// ErrNoFrame はまだフレームを受け取っていない場合のエラー
var ErrNoFrame = errors.New("フレームがありません")

// Broadcaster は最新フレームを保持し、購読者へJPEGを配信するシンク
type Broadcaster struct {
	quality int

	mu        sync.Mutex
	format    frame.Format
	latest    []byte // 最新のRGB32フレームのコピー
	latestTS  int64
	hasFrame  bool
	img       *image.RGBA
	encoded   []byte
	encodedTS int64
	clients   map[chan []byte]struct{}
}

// NewBroadcaster は新しいBroadcasterを作成する
func NewBroadcaster(quality int) *Broadcaster {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Broadcaster{
		quality: quality,
		clients: make(map[chan []byte]struct{}),
	}
}

// Open はフレーム形式を設定する
func (b *Broadcaster) Open(format frame.Format) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.format = format
	b.img = image.NewRGBA(image.Rect(0, 0, format.Width, format.Height))
	b.latest = make([]byte, format.Size())
	b.hasFrame = false
	b.encoded = nil
	return nil
}

// WriteFrame は最新フレームを保存し、購読者がいればエンコードして配信する
func (b *Broadcaster) WriteFrame(f frame.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.img == nil || f.Format.Width != b.format.Width || f.Format.Height != b.format.Height {
		return fmt.Errorf("フレーム形式が一致しません: %dx%d", f.Format.Width, f.Format.Height)
	}

	copy(b.latest, f.Data)
	b.latestTS = f.Timestamp
	b.hasFrame = true

	if len(b.clients) == 0 {
		return nil
	}

	data, err := b.encodeLocked()
	if err != nil {
		return err
	}

	// 遅い購読者のフレームは捨てる
	for ch := range b.clients {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

// Close は全ての購読者のチャンネルを閉じる
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.clients {
		close(ch)
		delete(b.clients, ch)
	}
	return nil
}

// Subscribe はJPEGフレームを受け取るチャンネルと購読解除関数を返す
func (b *Broadcaster) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 2)

	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.clients[ch]; ok {
			delete(b.clients, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Clients は現在の購読者数を返す
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Snapshot は最新フレームのJPEGを返す
func (b *Broadcaster) Snapshot() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasFrame {
		return nil, ErrNoFrame
	}
	return b.encodeLocked()
}

// encodeLocked は最新フレームをJPEGにする（ロック済み前提）
func (b *Broadcaster) encodeLocked() ([]byte, error) {
	if b.encoded != nil && b.encodedTS == b.latestTS {
		return b.encoded, nil
	}

	frame.FromRGB32(b.img, b.latest)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, b.img, &jpeg.Options{Quality: b.quality}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}

	// 配信済みのスライスは書き換えない
	b.encoded = buf.Bytes()
	b.encodedTS = b.latestTS
	return b.encoded, nil
}
