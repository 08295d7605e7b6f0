package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vsariola/bellchoir"
	"github.com/vsariola/bellchoir/cmd"
	"github.com/vsariola/bellchoir/conductor"
	"github.com/vsariola/bellchoir/version"
)

// errFailed makes the command exit with 1 after every input has been tried.
var errFailed = errors.New("some files could not be processed")

var scorePatterns = []string{"*.txt", "*.json", "*.yml", "*.yaml"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root := newRootCmd(os.Stdout, os.Stderr, cmd.NewAudioContext)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type player struct {
	cfg      bellchoir.Config
	logger   *slog.Logger
	stdout   io.Writer
	newAudio func() (bellchoir.AudioContext, error)
	audio    bellchoir.AudioContext
}

func newRootCmd(stdout, stderr io.Writer, newAudio func() (bellchoir.AudioContext, error)) *cobra.Command {
	v := viper.New()
	var configFile string
	root := &cobra.Command{
		Use:           "bellchoir-play [flags] [path ...]",
		Short:         "Play score files with a choir of bells",
		Long:          "bellchoir-play plays text scores (one \"PITCH LENGTH\" per line, e.g. \"C4S 8\") or .json/.yml scores, giving every pitch its own bell.\nDirectories are searched for " + strings.Join(scorePatterns, ", ") + " files.",
		Version:       version.VersionOrHash,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.Help()
			}
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			level, _ := cfg.Level()
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			if !cfg.Outputs() {
				cfg.Play = true // if the user gives nothing to output, then the default behaviour is just to play the file
			}
			p := &player{cfg: cfg, logger: logger, stdout: stdout, newAudio: newAudio}
			defer p.close()
			return p.run(c.Context(), args)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Version}}\n")
	flags := root.Flags()
	flags.BoolP("play", "p", false, "Play the input scores (default behaviour when no other output is defined).")
	flags.BoolP("wav", "w", false, "Output the rendered score as an 8-bit mono .wav file.")
	flags.BoolP("raw", "r", false, "Output the rendered score as a signed 8-bit mono .raw file.")
	flags.BoolP("midi", "m", false, "Output the score as a .mid file.")
	flags.BoolP("stdout", "s", false, "Do not write files; write to standard output instead.")
	flags.StringP("output-dir", "o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, the working directory.")
	flags.Int("gap", bellchoir.GapSamples, "Samples of silence written after each note.")
	flags.Bool("announce", true, "Print each pitch as it is played.")
	flags.String("log-level", "warn", "Diagnostics level: debug, info, warn or error.")
	flags.StringVar(&configFile, "config", "", "Config file. By default, bellchoir.yaml in the working directory if it exists.")
	for key, flag := range map[string]string{
		"play":       "play",
		"wav":        "wav",
		"raw":        "raw",
		"midi":       "midi",
		"stdout":     "stdout",
		"output_dir": "output-dir",
		"gap":        "gap",
		"announce":   "announce",
		"log_level":  "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return root
}

// loadConfig merges, from lowest to highest priority, the defaults, the
// config file, BELLCHOIR_* environment variables and the flags.
func loadConfig(v *viper.Viper, configFile string) (bellchoir.Config, error) {
	defaults := bellchoir.DefaultConfig()
	v.SetDefault("gap", defaults.Gap)
	v.SetDefault("announce", defaults.Announce)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetEnvPrefix("BELLCHOIR")
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bellchoir")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return bellchoir.Config{}, fmt.Errorf("could not read config: %w", err)
		}
	}
	var cfg bellchoir.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return bellchoir.Config{}, fmt.Errorf("could not decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return bellchoir.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (p *player) run(ctx context.Context, args []string) error {
	failed := false
	for _, param := range args {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			var files []string
			for _, pattern := range scorePatterns {
				matches, err := filepath.Glob(filepath.Join(param, pattern))
				if err != nil {
					p.logger.Error("could not glob directory", "dir", param, "pattern", pattern, "err", err)
					failed = true
					continue
				}
				files = append(files, matches...)
			}
			for _, file := range files {
				if err := p.process(ctx, file); err != nil {
					p.logger.Error("could not process file", "file", file, "err", err)
					failed = true
				}
			}
		} else if err := p.process(ctx, param); err != nil {
			p.logger.Error("could not process file", "file", param, "err", err)
			failed = true
		}
		if ctx.Err() != nil {
			break
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

// process exports and plays a single score. Problems with the score itself
// are only reported; the returned error is for outputs that could not be
// produced.
func (p *player) process(ctx context.Context, filename string) error {
	score := bellchoir.LoadScore(filename, p.logger)
	if p.cfg.Outputs() {
		if err := score.Validate(); err != nil {
			p.logger.Warn("nothing to export", "file", filename, "reason", err)
		} else if err := p.export(filename, score); err != nil {
			return err
		}
	}
	if !p.cfg.Play {
		return nil
	}
	if p.audio == nil {
		audio, err := p.newAudio()
		if err != nil {
			return fmt.Errorf("could not acquire AudioContext: %w", err)
		}
		p.audio = audio
	}
	opts := []conductor.Option{conductor.WithLogger(p.logger.With("file", filename)), conductor.WithGap(p.cfg.Gap)}
	if p.cfg.Announce && !p.cfg.Stdout {
		opts = append(opts, conductor.WithAnnouncer(p.stdout))
	}
	c := conductor.New(p.audio, opts...)
	if err := c.Prepare(score); err != nil {
		if !errors.Is(err, conductor.ErrUnplayableScore) {
			return fmt.Errorf("could not prepare score: %w", err)
		}
		// Play logs why the score is not played, without opening the output
		_ = c.Play(ctx)
		return nil
	}
	if err := c.Play(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("could not play: %w", err)
	}
	return nil
}

func (p *player) export(filename string, score bellchoir.Score) error {
	if p.cfg.Wav || p.cfg.Raw {
		buffer := bellchoir.Render(score, p.cfg.Gap)
		if p.cfg.Raw {
			if err := p.output(filename, ".raw", bellchoir.Raw(buffer)); err != nil {
				return fmt.Errorf("error outputting .raw file: %w", err)
			}
		}
		if p.cfg.Wav {
			wav, err := bellchoir.Wav(buffer)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %w", err)
			}
			if err := p.output(filename, ".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %w", err)
			}
		}
	}
	if p.cfg.MIDI {
		mid, err := bellchoir.SMF(score)
		if err != nil {
			return fmt.Errorf("could not generate .mid file: %w", err)
		}
		if err := p.output(filename, ".mid", mid); err != nil {
			return fmt.Errorf("error outputting .mid file: %w", err)
		}
	}
	return nil
}

func (p *player) output(filename, extension string, contents []byte) error {
	if p.cfg.Stdout {
		_, err := p.stdout.Write(contents)
		return err
	}
	dir := p.cfg.OutputDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
		}
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory %v: %v", dir, err)
	}
	_, name := filepath.Split(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
	f := filepath.Join(dir, name)
	if err := os.WriteFile(f, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", f, err)
	}
	return nil
}

func (p *player) close() {
	if p.audio == nil {
		return
	}
	if err := p.audio.Close(); err != nil {
		p.logger.Warn("could not close audio", "err", err)
	}
}
