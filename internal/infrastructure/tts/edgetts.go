package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/infrastructure/command"
	"NewsVideoPipeline/internal/ports"
)

const maxAttempts = 3

// EdgeTTS synthesizes narration with the edge-tts command line tool.
type EdgeTTS struct {
	cfg    config.TTSConfig
	run    command.Runner
	sleep  func(time.Duration)
	logger *slog.Logger
}

var _ ports.SpeechSynthesizer = (*EdgeTTS)(nil)

// NewEdgeTTS builds a synthesizer; a nil runner uses command.Exec.
func NewEdgeTTS(cfg config.TTSConfig, run command.Runner, logger *slog.Logger) *EdgeTTS {
	if run == nil {
		run = command.Exec
	}
	if cfg.Command == "" {
		cfg.Command = "edge-tts"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EdgeTTS{cfg: cfg, run: run, sleep: time.Sleep, logger: logger.With("component", "tts")}
}

// Synthesize writes voiceover.mp3 and subtitles.vtt into outputDir.
func (e *EdgeTTS) Synthesize(ctx context.Context, text, outputDir string) (domain.Voiceover, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Voiceover{}, fmt.Errorf("empty narration")
	}

	input, err := os.CreateTemp(outputDir, ".tts-*.txt")
	if err != nil {
		return domain.Voiceover{}, fmt.Errorf("stage narration: %w", err)
	}
	defer os.Remove(input.Name())
	if _, err := input.WriteString(text); err != nil {
		input.Close()
		return domain.Voiceover{}, fmt.Errorf("stage narration: %w", err)
	}
	if err := input.Close(); err != nil {
		return domain.Voiceover{}, fmt.Errorf("stage narration: %w", err)
	}

	vo := domain.Voiceover{
		AudioPath:    filepath.Join(outputDir, domain.VoiceoverFile),
		SubtitlePath: filepath.Join(outputDir, domain.SubtitlesFile),
	}
	args := e.args(input.Name(), vo)

	e.logger.Info("generating voiceover", "voice", e.cfg.Voice, "chars", len(text), "words", len(strings.Fields(text)))
	for attempt := 1; ; attempt++ {
		_, err = e.run(ctx, e.cfg.Command, args...)
		if err == nil {
			break
		}
		if attempt == maxAttempts || ctx.Err() != nil {
			return domain.Voiceover{}, domain.Unavailable("edge-tts", err)
		}
		e.logger.Warn("tts attempt failed, retrying", "attempt", attempt, "error", err)
		e.sleep(time.Duration(attempt) * 2 * time.Second)
	}

	info, err := os.Stat(vo.AudioPath)
	if err != nil || info.Size() == 0 {
		return domain.Voiceover{}, domain.Unavailable("edge-tts", fmt.Errorf("no audio written to %s", vo.AudioPath))
	}
	if _, err := os.Stat(vo.SubtitlePath); err != nil {
		vo.SubtitlePath = ""
	}
	e.logger.Info("voiceover saved", "path", vo.AudioPath, "bytes", info.Size())
	return vo, nil
}

func (e *EdgeTTS) args(inputFile string, vo domain.Voiceover) []string {
	args := []string{"--file", inputFile, "--write-media", vo.AudioPath, "--write-subtitles", vo.SubtitlePath}
	if e.cfg.Voice != "" {
		args = append(args, "--voice", e.cfg.Voice)
	}
	// Signed values must be joined with "=" or they parse as flags.
	if e.cfg.Rate != "" {
		args = append(args, "--rate="+e.cfg.Rate)
	}
	if e.cfg.Volume != "" {
		args = append(args, "--volume="+e.cfg.Volume)
	}
	return args
}
