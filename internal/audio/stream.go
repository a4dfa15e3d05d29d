package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueDepth  = 512
	defaultReadTimeout = 5 * time.Second
)

// frameQueue hands bytes from the device callback goroutine to a blocking
// reader. The callback side never blocks; when the reader falls behind,
// buffers are dropped and the next read reports ErrOverflow.
type frameQueue struct {
	chunks  chan []byte
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	timeout time.Duration

	pending []byte
}

func newFrameQueue(depth int, timeout time.Duration) *frameQueue {
	return &frameQueue{
		chunks:  make(chan []byte, depth),
		done:    make(chan struct{}),
		timeout: timeout,
	}
}

// push copies data; the device reuses its buffer after the callback returns.
func (q *frameQueue) push(data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case q.chunks <- buf:
	default:
		q.dropped.Add(1)
	}
}

func (q *frameQueue) stop() {
	q.once.Do(func() { close(q.done) })
}

func (q *frameQueue) read(n int) ([]byte, error) {
	if dropped := q.dropped.Swap(0); dropped > 0 {
		return nil, fmt.Errorf("%w: %d buffers dropped", ErrOverflow, dropped)
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	for len(q.pending) < n {
		select {
		case chunk := <-q.chunks:
			q.pending = append(q.pending, chunk...)
		case <-q.done:
			select {
			case chunk := <-q.chunks:
				q.pending = append(q.pending, chunk...)
			default:
				return nil, ErrStreamStopped
			}
		case <-timer.C:
			return nil, fmt.Errorf("%w after %s", ErrReadTimeout, q.timeout)
		}
	}

	out := make([]byte, n)
	copy(out, q.pending)
	q.pending = append(q.pending[:0], q.pending[n:]...)
	return out, nil
}

// playbackCursor feeds PCM to a playback callback. Once the data runs out
// it keeps writing silence and reports done only after drainPeriods further
// callbacks, by which time the device has played its buffered tail.
type playbackCursor struct {
	mu           sync.Mutex
	pcm          []byte
	offset       int
	silent       int
	drainPeriods int
}

func newPlaybackCursor(pcm []byte, drainPeriods int) *playbackCursor {
	return &playbackCursor{pcm: pcm, drainPeriods: drainPeriods}
}

func (c *playbackCursor) fill(output []byte) (done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.offset >= len(c.pcm) {
		clear(output)
		c.silent++
		return c.silent >= c.drainPeriods
	}
	n := copy(output, c.pcm[c.offset:])
	c.offset += n
	clear(output[n:])
	return false
}
