//go:build !headless

package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/bellchoir"
)

type (
	// OtoContext is an AudioContext playing through github.com/ebitengine/oto.
	// oto allows only one context per process.
	OtoContext struct {
		context *oto.Context
	}

	// OtoOutput is a line opened from an OtoContext.
	OtoOutput struct {
		player *oto.Player
		line   *lineBuffer
	}
)

const (
	otoBufferSize = 100 * time.Millisecond
	// lineBufferSize is how many samples can be written ahead of the player
	// before WriteAudio blocks.
	lineBufferSize = bellchoir.SampleRate / 4
)

// NewContext creates the oto context and waits until the audio device is
// ready.
func NewContext() (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   bellchoir.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatUnsignedInt8,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

// Output opens a new player and starts it. Until something is written, the
// player plays silence.
func (c *OtoContext) Output() (bellchoir.AudioSink, error) {
	if err := c.context.Err(); err != nil {
		return nil, fmt.Errorf("oto context failed: %w", err)
	}
	if err := c.context.Resume(); err != nil {
		return nil, fmt.Errorf("cannot resume oto context: %w", err)
	}
	line := newLineBuffer(lineBufferSize)
	player := c.context.NewPlayer(line)
	player.Play()
	return &OtoOutput{player: player, line: line}, nil
}

// Close suspends the context; oto contexts cannot be closed.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (o *OtoOutput) WriteAudio(buffer []byte) error {
	if err := o.player.Err(); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	if err := o.line.WriteAudio(buffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Drain waits until the player has read everything written and then for as
// long as it takes to play what the player still has buffered.
func (o *OtoOutput) Drain() error {
	if err := o.line.drain(); err != nil {
		return fmt.Errorf("cannot drain player: %w", err)
	}
	time.Sleep(samplesToDuration(o.player.BufferedSize()))
	return nil
}

// Close disposes of resources
func (o *OtoOutput) Close() error {
	o.line.close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
