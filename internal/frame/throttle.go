package frame

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle は目標フレームレートを超える呼び出しを待たせる。
// ハードウェアカメラの次の画像を待つなど別の同期手段がある場合は不要。
type Throttle struct {
	limiter *rate.Limiter
	last    int64
}

// NewThrottle はfpsを目標とするThrottleを作成する。fpsが0以下なら待たない。
func NewThrottle(fps int) *Throttle {
	limit := rate.Inf
	if fps > 0 {
		limit = rate.Every(time.Second / time.Duration(fps))
	}
	return &Throttle{limiter: rate.NewLimiter(limit, 1)}
}

// ThrottleFrameRate は次のフレームの枠まで待つ
func (t *Throttle) ThrottleFrameRate(ctx context.Context, ts int64) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	t.last = ts
	return nil
}

// LastTimestamp は最後に通過したフレームのタイムスタンプを返す
func (t *Throttle) LastTimestamp() int64 {
	return t.last
}
