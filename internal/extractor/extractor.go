package extractor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"NewsVideoPipeline/internal/domain"
)

// DebugFileName is the dump written when nothing could be recovered.
const DebugFileName = domain.DebugDumpFile

// Extractor recovers a JSON object from free-form model output.
type Extractor struct {
	debugDir string
	required []string
	passes   []Pass
	logger   *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRequiredKeys makes extraction fail unless every key is present at the top level.
func WithRequiredKeys(keys ...string) Option {
	return func(e *Extractor) {
		e.required = append(e.required, keys...)
	}
}

// WithPasses replaces the default repair passes.
func WithPasses(passes []Pass) Option {
	return func(e *Extractor) {
		e.passes = passes
	}
}

// New builds an Extractor. debugDir may be empty to disable the failure dump.
func New(debugDir string, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		debugDir: debugDir,
		passes:   DefaultPasses,
		logger:   logger.With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the recovered top-level object or an *domain.ExtractionError.
func (e *Extractor) Extract(raw string) (map[string]any, error) {
	candidate, err := locateObject(stripFence(raw))
	if err != nil {
		return nil, e.fail(raw, err.Error())
	}

	text := candidate
	var lastErr error
	for _, pass := range e.passes {
		for _, repair := range pass.Repairs {
			text = repair.Apply(text)
		}
		record, err := parseObject(text)
		if err != nil {
			lastErr = err
			continue
		}
		if missing := missingKeys(record, e.required); len(missing) > 0 {
			return nil, e.fail(raw, "missing required keys: "+strings.Join(missing, ", "))
		}
		if len(pass.Repairs) > 0 {
			e.logger.Info("recovered malformed response", "pass", pass.Name)
		}
		return record, nil
	}

	reason := "no repair pass produced valid JSON"
	if lastErr != nil {
		reason = fmt.Sprintf("%s: %v", reason, lastErr)
	}
	return nil, e.fail(raw, reason)
}

// Decode extracts the object and decodes it into v.
func (e *Extractor) Decode(raw string, v any) error {
	record, err := e.Extract(raw)
	if err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("re-encode extracted record: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return e.fail(raw, fmt.Sprintf("unexpected shape: %v", err))
	}
	return nil
}

// Reject reports a record that decoded but is unusable. The raw response is
// dumped the same way as a parse failure.
func (e *Extractor) Reject(raw, reason string) error {
	return e.fail(raw, reason)
}

func (e *Extractor) fail(raw, reason string) error {
	extractErr := &domain.ExtractionError{Reason: reason}
	if e.debugDir == "" {
		return extractErr
	}
	if err := os.MkdirAll(e.debugDir, 0o755); err != nil {
		e.logger.Warn("debug dir unavailable", "dir", e.debugDir, "error", err)
		return extractErr
	}
	path := filepath.Join(e.debugDir, DebugFileName)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		e.logger.Warn("failed to save raw response", "path", path, "error", err)
		return extractErr
	}
	extractErr.DebugPath = path
	e.logger.Error("extraction failed", "reason", reason, "debug_path", path)
	return extractErr
}

// stripFence removes a leading ``` line (with optional language tag) and a trailing ```.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// locateObject returns the span from the first '{' to the last '}'. Output
// with an opening brace but no closing one is treated as truncated and the
// whole tail is returned.
func locateObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}
	end := strings.LastIndexByte(s, '}')
	switch {
	case end > start:
		return s[start : end+1], nil
	case end < 0:
		return s[start:], nil
	default:
		return "", fmt.Errorf("closing brace precedes opening brace")
	}
}

func parseObject(text string) (map[string]any, error) {
	var record map[string]any
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("top-level value is null")
	}
	return record, nil
}

func missingKeys(record map[string]any, required []string) []string {
	var missing []string
	for _, key := range required {
		if _, ok := record[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
