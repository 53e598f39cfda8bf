package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Artifacts reads and writes the files of one date-partitioned run directory.
type Artifacts struct {
	dir string
}

// NewArtifacts binds the store to dir without touching the filesystem.
func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{dir: dir}
}

// Dir returns the run directory.
func (a *Artifacts) Dir() string {
	return a.dir
}

// Path returns the absolute location of name inside the run directory.
func (a *Artifacts) Path(name string) string {
	return filepath.Join(a.dir, name)
}

// Ensure creates the run directory.
func (a *Artifacts) Ensure() error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", a.dir, err)
	}
	return nil
}

// Exists reports whether name is present and non-empty.
func (a *Artifacts) Exists(name string) bool {
	info, err := os.Stat(a.Path(name))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// SaveJSON writes v as indented JSON. The file is replaced atomically so a
// crash never leaves a half-written artifact behind.
func (a *Artifacts) SaveJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return a.WriteFile(name, append(data, '\n'))
}

// WriteText stores plain text.
func (a *Artifacts) WriteText(name, text string) error {
	return a.WriteFile(name, []byte(text))
}

// WriteFile stores raw bytes atomically.
func (a *Artifacts) WriteFile(name string, data []byte) error {
	if err := a.Ensure(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(a.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), a.Path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// LoadJSON decodes name into v. It returns found=false when the file is absent.
func (a *Artifacts) LoadJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(a.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Size returns the file size in bytes.
func (a *Artifacts) Size(name string) (int64, error) {
	info, err := os.Stat(a.Path(name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
