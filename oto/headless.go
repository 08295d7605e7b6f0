//go:build headless

package oto

import (
	"time"

	"github.com/vsariola/bellchoir"
)

type (
	// OtoContext of a headless build discards all audio, consuming it at the
	// speed it would be played so that the timing matches a real device.
	OtoContext struct{}

	OtoOutput struct {
		line *lineBuffer
		done chan struct{}
	}
)

const (
	lineBufferSize = bellchoir.SampleRate / 4
	tick           = 10 * time.Millisecond
)

func NewContext() (*OtoContext, error) {
	return &OtoContext{}, nil
}

func (c *OtoContext) Output() (bellchoir.AudioSink, error) {
	o := &OtoOutput{line: newLineBuffer(lineBufferSize), done: make(chan struct{})}
	go o.consume()
	return o, nil
}

func (c *OtoContext) Close() error { return nil }

func (o *OtoOutput) consume() {
	defer close(o.done)
	chunk := make([]byte, int(bellchoir.SampleRate*tick/time.Second))
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := o.line.Read(chunk); err != nil {
			return
		}
	}
}

func (o *OtoOutput) WriteAudio(buffer []byte) error {
	return o.line.WriteAudio(buffer)
}

func (o *OtoOutput) Drain() error {
	return o.line.drain()
}

func (o *OtoOutput) Close() error {
	o.line.close()
	<-o.done
	return nil
}
