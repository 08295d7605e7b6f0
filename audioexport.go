package bellchoir

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// GapSamples is the length of the silence written after every note. It
// separates consecutive notes so the waveform does not jump from one sine to
// the next.
const GapSamples = 50

// Render lays out the score the same way the bells write it to a line: for
// every note, Length.Samples() samples of the pitch followed by gap samples of
// silence. Nothing is paced or played; the result can be exported with Wav or
// Raw.
func Render(score Score, gap int) []byte {
	gap = min(max(gap, 0), MeasureSamples)
	size := 0
	for _, n := range score.Notes {
		size += n.Length.Samples() + gap
	}
	buffer := make([]byte, 0, size)
	silence := Rest.Samples()[:gap]
	for _, n := range score.Notes {
		buffer = append(buffer, n.Pitch.Samples()[:n.Length.Samples()]...)
		buffer = append(buffer, silence...)
	}
	return buffer
}

// Wav wraps signed 8-bit samples into a mono 8-bit PCM .wav file. WAV stores
// 8-bit samples unsigned, so the samples are offset by 128.
func Wav(buffer []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := wavHeader(len(buffer), buf); err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	unsigned := make([]byte, len(buffer))
	for i, v := range buffer {
		unsigned[i] = v ^ 0x80
	}
	buf.Write(unsigned)
	return buf.Bytes(), nil
}

// Raw returns the samples as headerless signed 8-bit mono data.
func Raw(buffer []byte) []byte {
	return append([]byte(nil), buffer...)
}

// wavHeader writes a RIFF header for bufferLength mono 8-bit samples at
// SampleRate into buf.
func wavHeader(bufferLength int, buf *bytes.Buffer) error {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	const (
		numChannels    = 1
		bytesPerSample = 1
		fmtChunkSize   = 16
		waveFormat     = 1 // PCM
	)
	chunkSize := 36 + bytesPerSample*bufferLength
	buf.Write([]byte("RIFF"))
	fields := []any{
		uint32(chunkSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(fmtChunkSize),
		uint16(waveFormat),
		uint16(numChannels),
		uint32(SampleRate),
		uint32(SampleRate * numChannels * bytesPerSample), // avgBytesPerSec
		uint16(numChannels * bytesPerSample),              // blockAlign
		uint16(8 * bytesPerSample),                        // bits per sample
		[4]byte{'d', 'a', 't', 'a'},
		uint32(bytesPerSample * bufferLength),
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("could not write wav header: %v", err)
		}
	}
	return nil
}
