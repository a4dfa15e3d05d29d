package audio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameQueueReassemblesChunks(t *testing.T) {
	q := newFrameQueue(8, time.Second)
	q.push([]byte{1, 2, 3})
	q.push([]byte{4, 5, 6, 7, 8})

	got, err := q.read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	got, err = q.read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7, 8}, got)
}

func TestFrameQueueCopiesCallbackBuffer(t *testing.T) {
	q := newFrameQueue(8, time.Second)
	buf := []byte{9, 9}
	q.push(buf)
	buf[0] = 0

	got, err := q.read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, got)
}

func TestFrameQueueBlocksUntilDataArrives(t *testing.T) {
	q := newFrameQueue(8, time.Second)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		q.push([]byte{1, 2})
	}()

	got, err := q.read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)
	wg.Wait()
}

func TestFrameQueueOverflow(t *testing.T) {
	q := newFrameQueue(1, time.Second)
	q.push([]byte{1})
	q.push([]byte{2})

	_, err := q.read(1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestFrameQueueTimeout(t *testing.T) {
	q := newFrameQueue(1, 10*time.Millisecond)
	_, err := q.read(2)
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestFrameQueueStopped(t *testing.T) {
	q := newFrameQueue(4, time.Second)
	q.push([]byte{1, 2})
	q.stop()
	q.stop()

	got, err := q.read(2)
	require.NoError(t, err, "buffered data is still delivered")
	assert.Equal(t, []byte{1, 2}, got)

	_, err = q.read(2)
	assert.ErrorIs(t, err, ErrStreamStopped)
}

func TestPlaybackCursorDrainsBeforeDone(t *testing.T) {
	c := newPlaybackCursor([]byte{1, 2, 3, 4, 5, 6}, 2)

	out := make([]byte, 4)
	assert.False(t, c.fill(out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out)

	// the partial tail is handed over, padded with silence
	assert.False(t, c.fill(out))
	assert.Equal(t, []byte{5, 6, 0, 0}, out)

	assert.False(t, c.fill(out), "tail still buffered in the device")
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
	assert.True(t, c.fill(out))
}

func TestPlaybackCursorEmptyInput(t *testing.T) {
	c := newPlaybackCursor(nil, 1)
	out := []byte{7, 7}
	assert.True(t, c.fill(out))
	assert.Equal(t, []byte{0, 0}, out)
}
