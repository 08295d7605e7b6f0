//go:build portaudio

package portaudio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/vsariola/bellchoir"
)

type (
	// Context is an AudioContext opening PortAudio default output streams.
	Context struct{}

	// Output writes to a blocking PortAudio stream: WriteAudio returns once
	// PortAudio has taken every sample, which is how a hardware line behaves.
	Output struct {
		stream  *portaudio.Stream
		buffer  []int8
		running bool
	}
)

const framesPerBuffer = 1024

// NewContext initializes PortAudio. Close terminates it.
func NewContext() (*Context, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("cannot initialize portaudio: %w", err)
	}
	return &Context{}, nil
}

func (c *Context) Output() (bellchoir.AudioSink, error) {
	o := &Output{buffer: make([]int8, framesPerBuffer)}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(bellchoir.SampleRate), len(o.buffer), &o.buffer)
	if err != nil {
		return nil, fmt.Errorf("cannot open portaudio stream: %w", err)
	}
	o.stream = stream
	if err := o.start(); err != nil {
		stream.Close()
		return nil, err
	}
	return o, nil
}

func (c *Context) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("cannot terminate portaudio: %w", err)
	}
	return nil
}

func (o *Output) start() error {
	if o.running {
		return nil
	}
	if err := o.stream.Start(); err != nil {
		return fmt.Errorf("cannot start portaudio stream: %w", err)
	}
	o.running = true
	return nil
}

func (o *Output) WriteAudio(buffer []byte) error {
	if err := o.start(); err != nil {
		return err
	}
	for len(buffer) > 0 {
		n := len(buffer)
		if n > len(o.buffer) {
			n = len(o.buffer)
		}
		for i, v := range buffer[:n] {
			o.buffer[i] = int8(v)
		}
		// the last chunk is padded with silence, the stream always writes
		// whole buffers
		clear(o.buffer[n:])
		if err := o.stream.Write(); err != nil {
			return fmt.Errorf("cannot write to portaudio stream: %w", err)
		}
		buffer = buffer[n:]
	}
	return nil
}

// Drain stops the stream, which returns once all pending buffers have been
// played. The next write starts it again.
func (o *Output) Drain() error {
	if !o.running {
		return nil
	}
	o.running = false
	if err := o.stream.Stop(); err != nil {
		return fmt.Errorf("cannot drain portaudio stream: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	if err := o.Drain(); err != nil {
		return err
	}
	if err := o.stream.Close(); err != nil {
		return fmt.Errorf("cannot close portaudio stream: %w", err)
	}
	return nil
}
