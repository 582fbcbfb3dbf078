package telemetry

import (
	"bytes"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

const (
	// DefaultBatchSize is the number of buffered bytes that forces a flush.
	DefaultBatchSize = 4096
	// DefaultBatchInterval is the longest time output stays buffered.
	DefaultBatchInterval = 50 * time.Millisecond
)

var errBatcherClosed = zerr.New("batcher is closed")

// batcher buffers task output and hands it to flush in chunks, either when
// size bytes are buffered or interval after the first unflushed write.
type batcher struct {
	size     int
	interval time.Duration
	flush    func([]byte)

	mu     sync.Mutex
	buf    bytes.Buffer
	timer  *time.Timer
	closed bool
}

func newBatcher(size int, interval time.Duration, flush func([]byte)) *batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if interval <= 0 {
		interval = DefaultBatchInterval
	}
	return &batcher{size: size, interval: interval, flush: flush}
}

// Write buffers p.
func (b *batcher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errBatcherClosed
	}

	b.buf.Write(p)
	if b.buf.Len() >= b.size {
		b.flushLocked()
		return len(p), nil
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.onTimer)
	}
	return len(p), nil
}

// Close flushes the remaining output. Later writes fail.
func (b *batcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.flushLocked()
	return nil
}

func (b *batcher) onTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timer = nil
	b.flushLocked()
}

// flushLocked must be called with mu held.
func (b *batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.buf.Len() == 0 {
		return
	}

	data := bytes.Clone(b.buf.Bytes())
	b.buf.Reset()
	if b.flush != nil {
		b.flush(data)
	}
}
