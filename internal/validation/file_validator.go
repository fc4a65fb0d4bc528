package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrFileTooLarge is returned by ValidateFile for inputs above the size limit
	ErrFileTooLarge = errors.New("file exceeds the size limit")

	// ErrWrongExtension is returned by ValidateOutputFile for a mismatched suffix
	ErrWrongExtension = errors.New("unexpected file extension")
)

// FileValidator checks an order export before it is read and the locations
// exports are written to before any work starts.
type FileValidator struct {
	logger  *slog.Logger
	maxSize int64
}

func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// WithMaxSize rejects inputs larger than limit bytes. Zero or less disables the check.
func (v *FileValidator) WithMaxSize(limit int64) *FileValidator {
	v.maxSize = limit
	return v
}

// ValidateFile reports whether path is a regular, readable file within the size limit
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("file %s does not exist", path)
	case err != nil:
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("%s is a directory, not a file", path)
	case v.maxSize > 0 && info.Size() > v.maxSize:
		v.logger.Warn("Input rejected",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", v.maxSize))
		return fmt.Errorf("%s: %w (%d > %d bytes)", path, ErrFileTooLarge, info.Size(), v.maxSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	f.Close()

	v.logger.Debug("Input validated", slog.String("file", path), slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputFile checks that path can be created as a file with extension
// ext (ignored when empty) and that its directory is writable.
func (v *FileValidator) ValidateOutputFile(path, ext string) error {
	if ext != "" && !strings.EqualFold(filepath.Ext(path), ext) {
		return fmt.Errorf("%s: %w, want %s", path, ErrWrongExtension, ext)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}

// ValidateOutputDirectory creates dir if needed and probes it with a temporary file
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Output directory unavailable", slog.String("directory", dir), slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".lotpulse-probe-*")
	if err != nil {
		v.logger.Error("Output directory not writable", slog.String("directory", dir), slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}
