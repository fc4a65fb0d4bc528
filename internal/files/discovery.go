package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultExtensions are the file types an order export is saved as
var DefaultExtensions = []string{".csv", ".xlsx", ".txt"}

// ErrNoExports is returned when a directory or pattern holds no export
var ErrNoExports = errors.New("no order exports found")

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	extensions []string
}

// NewDiscovery creates a discovery for the given extensions, or
// DefaultExtensions when none are given.
func NewDiscovery(extensions ...string) *Discovery {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &Discovery{extensions: normalized}
}

// FindExports lists the exports in dir, oldest first
func (d *Discovery) FindExports(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !d.matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortByModTime(files)
	return files, nil
}

// FindFilesByPattern lists the exports matching a glob pattern, oldest first
func (d *Discovery) FindFilesByPattern(pattern string) ([]FileInfo, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() || !d.matches(info.Name()) {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortByModTime(files)
	return files, nil
}

// Resolve returns path itself for a plain file name. A directory or a glob
// pattern resolves to the newest export it holds.
func (d *Discovery) Resolve(path string) (string, error) {
	var (
		files []FileInfo
		err   error
	)

	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		files, err = d.FindExports(path)
	} else if strings.ContainsAny(path, "*?[") {
		files, err = d.FindFilesByPattern(path)
	} else {
		return path, nil
	}
	if err != nil {
		return "", err
	}

	latest, ok := GetLatestFile(files)
	if !ok {
		return "", fmt.Errorf("%w in %s", ErrNoExports, path)
	}
	return latest.Path, nil
}

// matches reports whether name has one of the extensions. Office lock files
// (~$name.xlsx) are skipped.
func (d *Discovery) matches(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range d.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func sortByModTime(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}
