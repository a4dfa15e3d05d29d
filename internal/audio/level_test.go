package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constantPCM(value int16, samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(value))
	}
	return pcm
}

func TestCalculateLevelSilence(t *testing.T) {
	assert.Equal(t, Level{}, CalculateLevel(nil))
	assert.Equal(t, Level{}, CalculateLevel(constantPCM(0, 100)))
}

func TestCalculateLevelClipping(t *testing.T) {
	level := CalculateLevel(constantPCM(math.MaxInt16, 100))
	assert.True(t, level.Clipping)
	assert.Equal(t, math.MaxInt16, level.Peak)
	assert.GreaterOrEqual(t, level.RMS, 95.0)
	assert.LessOrEqual(t, level.RMS, 100.0)
}

func TestCalculateLevelQuietSignal(t *testing.T) {
	// -40 dBFS scales to 40
	level := CalculateLevel(constantPCM(328, 1000))
	assert.False(t, level.Clipping)
	assert.InDelta(t, 40, level.RMS, 0.5)

	veryQuiet := CalculateLevel(constantPCM(1, 1000))
	assert.Zero(t, veryQuiet.RMS)
}
