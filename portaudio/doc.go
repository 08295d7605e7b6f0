// Package portaudio plays bellchoir audio through a blocking PortAudio
// stream. It requires the PortAudio C library and is only built with the
// portaudio build tag.
package portaudio
