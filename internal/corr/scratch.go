package corr

import "sync"

// bufferPool provides reusable float64 working buffers keyed by length.
// Masked working copies are the dominant allocation in a scoring pass.
type bufferPool struct {
	mu      sync.Mutex
	pools   map[int][][]float64 // Key: buffer length
	maxEach int
}

func newBufferPool(maxEach int) *bufferPool {
	return &bufferPool{
		pools:   make(map[int][][]float64),
		maxEach: maxEach,
	}
}

// get returns a buffer of exactly size elements. Contents are undefined.
func (p *bufferPool) get(size int) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool := p.pools[size]
	if len(pool) > 0 {
		lastIdx := len(pool) - 1
		buf := pool[lastIdx]
		p.pools[size] = pool[:lastIdx]
		return buf
	}
	return make([]float64, size)
}

// put returns a buffer to the pool. Buffers beyond maxEach are dropped.
func (p *bufferPool) put(buf []float64) {
	if len(buf) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	size := len(buf)
	pool := p.pools[size]
	if len(pool) >= p.maxEach {
		return
	}
	p.pools[size] = append(pool, buf)
}

var scratch = newBufferPool(16)

func getScratch(size int) []float64 { return scratch.get(size) }

func putScratch(buf []float64) { scratch.put(buf) }
