package top

import "sync"

// DefaultHistorySize is the number of confidence readings kept for the sparkline.
const DefaultHistorySize = 60

// History keeps the recent model confidence readings in a ring buffer.
type History struct {
	mu  sync.RWMutex
	buf *ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history holding size readings.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: newRingBuffer(size)}
}

// Push records a confidence reading. Unknown readings (zero or below) are
// skipped so the sparkline only shows values the server reported.
func (h *History) Push(confidence float64) {
	if confidence <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.push(confidence)
}

// Last returns up to count readings, oldest first.
func (h *History) Last(count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buf.getLast(count)
}

// Len returns how many readings are stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buf.count
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	result := make([]float64, count)
	// head is the next write position, so the newest value sits at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}
