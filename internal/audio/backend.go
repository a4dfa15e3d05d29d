package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// BackendType names the host audio API used by the malgo context.
type BackendType string

const (
	BackendAuto       BackendType = "auto"
	BackendALSA       BackendType = "alsa"
	BackendPulseAudio BackendType = "pulseaudio"
	BackendJACK       BackendType = "jack"
	BackendCoreAudio  BackendType = "coreaudio"
	BackendWASAPI     BackendType = "wasapi"
	BackendNull       BackendType = "null"
)

var malgoBackends = map[BackendType]malgo.Backend{
	BackendALSA:       malgo.BackendAlsa,
	BackendPulseAudio: malgo.BackendPulseaudio,
	BackendJACK:       malgo.BackendJack,
	BackendCoreAudio:  malgo.BackendCoreaudio,
	BackendWASAPI:     malgo.BackendWasapi,
	BackendNull:       malgo.BackendNull,
}

// ParseBackend resolves a configured backend name. An empty name means auto.
func ParseBackend(name string) (BackendType, error) {
	backend := BackendType(strings.ToLower(strings.TrimSpace(name)))
	if backend == "" || backend == BackendAuto {
		return BackendAuto, nil
	}
	if _, ok := malgoBackends[backend]; !ok {
		return "", fmt.Errorf("unknown audio backend %q (valid: %s)", name, strings.Join(backendNames(), ", "))
	}
	return backend, nil
}

// contextBackends returns the malgo priority list. Auto leaves the choice
// to miniaudio.
func (b BackendType) contextBackends() []malgo.Backend {
	if backend, ok := malgoBackends[b]; ok {
		return []malgo.Backend{backend}
	}
	return nil
}

// GetAvailableBackends lists every backend name accepted by ParseBackend.
func GetAvailableBackends() []BackendType {
	return []BackendType{BackendAuto, BackendALSA, BackendPulseAudio, BackendJACK, BackendCoreAudio, BackendWASAPI, BackendNull}
}

func backendNames() []string {
	var names []string
	for _, b := range GetAvailableBackends() {
		names = append(names, string(b))
	}
	return names
}
