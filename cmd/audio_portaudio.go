//go:build portaudio

package cmd

import (
	"github.com/vsariola/bellchoir"
	"github.com/vsariola/bellchoir/portaudio"
)

func NewAudioContext() (bellchoir.AudioContext, error) {
	context, err := portaudio.NewContext()
	if err != nil {
		return nil, err
	}
	return context, nil
}
