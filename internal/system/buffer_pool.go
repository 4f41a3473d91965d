package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует кадры *image.RGBA одинакового размера
// (оверлеи субтитров рендерятся в полный кадр композиции).
type ImagePool struct {
	mu     sync.RWMutex
	pools  map[image.Point]*sync.Pool
	hits   atomic.Int64
	misses atomic.Int64
}

var globalPool = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

// GetImage возвращает прозрачный кадр w x h из общего пула.
func GetImage(w, h int) *image.RGBA {
	return globalPool.Get(w, h)
}

// PutImage возвращает кадр в общий пул.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

// PoolStats возвращает число попаданий и промахов общего пула.
func PoolStats() (hits, misses int64) {
	return globalPool.Stats()
}

func (p *ImagePool) pool(size image.Point) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok = p.pools[size]; !ok {
		pool = &sync.Pool{}
		p.pools[size] = pool
	}
	return pool
}

func (p *ImagePool) Get(w, h int) *image.RGBA {
	size := image.Pt(w, h)
	if img, ok := p.pool(size).Get().(*image.RGBA); ok {
		p.hits.Add(1)
		clear(img.Pix)
		return img
	}
	p.misses.Add(1)
	return image.NewRGBA(image.Rectangle{Max: size})
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	p.pool(img.Rect.Size()).Put(img)
}

func (p *ImagePool) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}
