package frame

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Kind はジェネレーターの種類
type Kind string

const (
	// KindArc は回転する円弧のデモアニメーション
	KindArc Kind = "arc"
	// KindColorBars はSMPTEカラーバーのテストパターン
	KindColorBars Kind = "colorbars"
)

// Registry は種類ごとのファクトリーを保持する
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]Factory
}

// NewRegistry は標準のファクトリーを登録したRegistryを作成する
func NewRegistry(fps int, logger *zap.SugaredLogger) *Registry {
	r := &Registry{
		factories: make(map[Kind]Factory),
	}

	// デモアニメーション
	r.Register(KindArc, NewArcFactory(fps, DefaultText, logger))

	// テストパターン
	r.Register(KindColorBars, &ColorBarsFactory{FPS: fps, Logger: logger})

	return r
}

// Register はファクトリーを登録する。同じ種類は上書きする。
func (r *Registry) Register(kind Kind, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Factory は指定された種類のファクトリーを返す
func (r *Registry) Factory(kind Kind) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[kind]
	if !exists {
		return nil, fmt.Errorf("サポートされていないジェネレーター: %s", kind)
	}
	return factory, nil
}

// Kinds は登録済みの種類を名前順で返す
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
