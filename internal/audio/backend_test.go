package audio

import (
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := map[string]BackendType{
		"":           BackendAuto,
		"auto":       BackendAuto,
		"ALSA":       BackendALSA,
		" jack ":     BackendJACK,
		"pulseaudio": BackendPulseAudio,
		"null":       BackendNull,
	}
	for input, want := range tests {
		got, err := ParseBackend(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseBackend("pipewire")
	assert.ErrorContains(t, err, "unknown audio backend")
}

func TestContextBackends(t *testing.T) {
	assert.Nil(t, BackendAuto.contextBackends())
	assert.Equal(t, []malgo.Backend{malgo.BackendAlsa}, BackendALSA.contextBackends())
	assert.Equal(t, []malgo.Backend{malgo.BackendWasapi}, BackendWASAPI.contextBackends())
}

func TestGetAvailableBackends(t *testing.T) {
	for _, b := range GetAvailableBackends() {
		_, err := ParseBackend(string(b))
		assert.NoError(t, err, b)
	}
}
