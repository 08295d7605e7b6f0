package bellchoir

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseScore reads a text score: one note per line, a pitch token and a
// length token separated by whitespace, e.g. "C4S 8". Unknown pitches are
// read as Rest and unknown lengths as Whole. Lines with the wrong number of
// tokens are reported to logger and skipped; empty lines are ignored. A read
// error stops parsing and is returned together with the notes read so far.
func ParseScore(r io.Reader, logger *slog.Logger) (Score, error) {
	logger = loggerOrDefault(logger)
	var score Score
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		note, err := parseNote(fields)
		if err != nil {
			logger.Warn("invalid note", "line", lineNumber, "text", line, "err", err)
			continue
		}
		score.Notes = append(score.Notes, note)
	}
	if err := scanner.Err(); err != nil {
		return score, fmt.Errorf("could not read score: %w", err)
	}
	return score, nil
}

func parseNote(fields []string) (Note, error) {
	if len(fields) != 2 {
		return Note{}, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}
	pitch, _ := ParsePitch(fields[0])
	length, _ := ParseDuration(fields[1])
	return Note{Pitch: pitch, Length: length}, nil
}

// UnmarshalScore decodes a structured score, trying json first and yaml
// second.
func UnmarshalScore(data []byte) (Score, error) {
	var score Score
	if errJSON := json.Unmarshal(data, &score); errJSON != nil {
		score = Score{}
		if errYaml := yaml.Unmarshal(data, &score); errYaml != nil {
			return Score{}, fmt.Errorf("the score could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return score, nil
}

// LoadScore reads the score in filename. Files ending in .json, .yml or
// .yaml are decoded with UnmarshalScore, anything else with ParseScore.
//
// LoadScore never fails: problems are reported to logger. A missing or
// unreadable file yields an empty score flagged Invalid.
func LoadScore(filename string, logger *slog.Logger) Score {
	logger = loggerOrDefault(logger)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".yml", ".yaml":
		data, err := os.ReadFile(filename)
		if err != nil {
			reportOpenError(logger, filename, err)
			return Score{Invalid: true}
		}
		score, err := UnmarshalScore(data)
		if err != nil {
			logger.Error("could not parse score", "file", filename, "err", err)
			return Score{Invalid: true}
		}
		return score
	}
	f, err := os.Open(filename)
	if err != nil {
		reportOpenError(logger, filename, err)
		return Score{Invalid: true}
	}
	defer f.Close()
	score, err := ParseScore(f, logger.With("file", filename))
	if err != nil {
		logger.Error("score truncated", "file", filename, "err", err)
	}
	return score
}

func reportOpenError(logger *slog.Logger, filename string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		logger.Error("score file not found", "file", filename)
		return
	}
	logger.Error("could not open score", "file", filename, "err", err)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
