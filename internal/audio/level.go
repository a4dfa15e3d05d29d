package audio

import (
	"encoding/binary"
	"math"
)

// Level summarises the loudness of a take.
type Level struct {
	// RMS is scaled to 0-100, where -60 dBFS and below reads as 0.
	RMS      float64
	Peak     int
	Clipping bool
}

// CalculateLevel measures PCM16 mono or interleaved audio.
func CalculateLevel(pcm []byte) Level {
	sampleCount := len(pcm) / 2
	if sampleCount == 0 {
		return Level{}
	}

	var sum float64
	var level Level
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		abs := math.Abs(float64(sample))
		sum += abs * abs
		if int(abs) > level.Peak {
			level.Peak = int(abs)
		}
		if sample == math.MaxInt16 || sample == math.MinInt16 {
			level.Clipping = true
		}
	}

	rms := math.Sqrt(sum / float64(sampleCount))
	if rms == 0 {
		return level
	}
	db := 20 * math.Log10(rms/32768.0)
	scaled := (db + 60) * (100.0 / 50.0)
	if level.Clipping {
		scaled = math.Max(scaled, 95)
	}
	level.RMS = math.Max(0, math.Min(100, scaled))
	return level
}
