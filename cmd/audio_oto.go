//go:build !portaudio

package cmd

import (
	"github.com/vsariola/bellchoir"
	"github.com/vsariola/bellchoir/oto"
)

// NewAudioContext opens the audio backend selected at build time: oto by
// default, a silent one with the headless tag, PortAudio with the portaudio
// tag.
func NewAudioContext() (bellchoir.AudioContext, error) {
	context, err := oto.NewContext()
	if err != nil {
		return nil, err
	}
	return context, nil
}
