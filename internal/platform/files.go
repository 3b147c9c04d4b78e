package platform

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Extensions of in-flight engine temp files, never served or swept eagerly
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp"}
)

// CreateDirectoryIfNotExists creates the directory (and parents) when missing
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// SanitizeBaseName reduces a media identifier to a filesystem-safe base name:
// letters, digits, dot, dash and underscore survive, everything else becomes
// an underscore.
func SanitizeBaseName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "media"
	}
	return b.String()
}

// FindFileWithPrefix returns the name of the first regular file in dir whose
// name starts with prefix, skipping engine temp files. The engine decides the
// final extension, so callers only know the base name.
func FindFileWithPrefix(dir, prefix string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if isTempFile(name) {
			continue
		}
		return name, true
	}
	return "", false
}

// SweepOldFiles removes regular files in dir older than maxAge for which keep
// returns false. It returns the removed file names. Errors on single files
// are skipped; sweeping is best-effort housekeeping.
func SweepOldFiles(dir string, maxAge time.Duration, keep func(name string) bool) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if keep != nil && keep(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err == nil {
			removed = append(removed, name)
		}
	}
	return removed
}

func isTempFile(name string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
