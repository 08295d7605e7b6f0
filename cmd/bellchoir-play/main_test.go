package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/vsariola/bellchoir"
)

type harness struct {
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	recorder bellchoir.Recorder
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd(&h.stdout, &h.stderr, func() (bellchoir.AudioContext, error) {
		return &h.recorder, nil
	})
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func writeScore(t *testing.T, dir, name, contents string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(filename, []byte(contents), 0644))
	return filename
}

func TestExportFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "nested")
	file := writeScore(t, dir, "song.txt", "A4 4\nREST 4\nA4 2\n")
	var h harness
	require.NoError(t, h.run(t, "-w", "-r", "-m", "-o", out, file))

	score := bellchoir.LoadScore(file, nil)
	raw, err := os.ReadFile(filepath.Join(out, "song.raw"))
	require.NoError(t, err)
	assert.Equal(t, bellchoir.Render(score, bellchoir.GapSamples), raw)

	wav, err := os.ReadFile(filepath.Join(out, "song.wav"))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Len(t, wav, 44+len(raw))

	mid, err := smf.ReadFile(filepath.Join(out, "song.mid"))
	require.NoError(t, err)
	assert.Len(t, mid.Tracks, 1)

	assert.Zero(t, h.recorder.Opened(), "exporting does not play")
	assert.Empty(t, h.stdout.String())
}

func TestExportDirectory(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	writeScore(t, dir, "first.txt", "C4 8\n")
	writeScore(t, dir, "second.json", `{"notes":[{"pitch":"G4","length":2}]}`)
	writeScore(t, dir, "ignored.md", "C4 8\n")
	var h harness
	require.NoError(t, h.run(t, "-m", "-o", out, dir))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"first.mid", "second.mid"}, names)
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	file := writeScore(t, dir, "song.txt", "A4 4\nbad\nB4 4 extra\nB4 4\n")
	var h harness
	require.NoError(t, h.run(t, "-r", "-s", file))
	want := bellchoir.Render(bellchoir.Score{Notes: []bellchoir.Note{
		{Pitch: bellchoir.A4, Length: bellchoir.Quarter},
		{Pitch: bellchoir.B4, Length: bellchoir.Quarter},
	}}, bellchoir.GapSamples)
	assert.Equal(t, want, h.stdout.Bytes())
	assert.Equal(t, 2, bytes.Count(h.stderr.Bytes(), []byte("invalid note")))
}

func TestPlay(t *testing.T) {
	dir := t.TempDir()
	file := writeScore(t, dir, "song.txt", "A4 8\nC4 8\n")
	var h harness
	require.NoError(t, h.run(t, file))
	assert.Equal(t, "A4\nC4\n", h.stdout.String())
	assert.Equal(t, bellchoir.Render(bellchoir.LoadScore(file, nil), bellchoir.GapSamples), h.recorder.Bytes())
	assert.Equal(t, 1, h.recorder.Opened())
	assert.Equal(t, 1, h.recorder.Drained())
}

func TestPlayMissingFile(t *testing.T) {
	var h harness
	require.NoError(t, h.run(t, filepath.Join(t.TempDir(), "missing.txt")))
	assert.Contains(t, h.stderr.String(), "score file not found")
	assert.Equal(t, 1, strings.Count(h.stderr.String(), "not playing score"))
	assert.Zero(t, h.recorder.Opened(), "nothing is played for a missing file")
	assert.Empty(t, h.stdout.String())
}

func TestPlayEmptyScore(t *testing.T) {
	file := writeScore(t, t.TempDir(), "empty.txt", "\n\n")
	var h harness
	require.NoError(t, h.run(t, file))
	assert.Equal(t, 1, strings.Count(h.stderr.String(), "not playing score"))
	assert.Zero(t, h.recorder.Opened())
	assert.Empty(t, h.stdout.String())
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := writeScore(t, dir, "song.txt", "E4 8\n")
	config := writeScore(t, dir, "bellchoir.yaml", "gap: 0\nannounce: false\n")
	var h harness
	require.NoError(t, h.run(t, "--config", config, file))
	assert.Empty(t, h.stdout.String())
	assert.Equal(t, bellchoir.Render(bellchoir.LoadScore(file, nil), 0), h.recorder.Bytes())
}

func TestEnvironment(t *testing.T) {
	t.Setenv("BELLCHOIR_GAP", "10")
	dir := t.TempDir()
	file := writeScore(t, dir, "song.txt", "E4 8\n")
	var h harness
	require.NoError(t, h.run(t, "-r", "-s", file))
	assert.Len(t, h.stdout.Bytes(), bellchoir.Eighth.Samples()+10)

	// flags win over the environment
	var h2 harness
	require.NoError(t, h2.run(t, "-r", "-s", "--gap", "20", file))
	assert.Len(t, h2.stdout.Bytes(), bellchoir.Eighth.Samples()+20)
}

func TestInvalidConfig(t *testing.T) {
	file := writeScore(t, t.TempDir(), "song.txt", "E4 8\n")
	var h harness
	assert.Error(t, h.run(t, "--gap", "-1", file))
	assert.Error(t, h.run(t, "--log-level", "loud", file))
	assert.Zero(t, h.recorder.Opened())
}
