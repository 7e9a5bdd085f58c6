package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Capture files are named "<date> ~ <base name> ~ v<N>.<ext>", one version
// number per (date, base name) within a day.
type CaptureFile struct {
	Path    string
	Name    string
	Date    string // YYYY-MM-DD
	Base    string
	Version int
}

// CaptureFileName builds the canonical capture file name.
func CaptureFileName(date, base string, version int, ext string) string {
	return fmt.Sprintf("%s ~ %s ~ v%d.%s", date, base, version, ext)
}

// ParseCaptureFileName splits a capture file name into its parts.
func ParseCaptureFileName(name string) (CaptureFile, error) {
	ext := filepath.Ext(name)
	parts := strings.Split(strings.TrimSuffix(name, ext), " ~ ")
	if len(parts) != 3 {
		return CaptureFile{}, errors.Errorf("file name %q is not in '<date> ~ <name> ~ v<N>' form", name)
	}
	if !strings.HasPrefix(parts[2], "v") {
		return CaptureFile{}, errors.Errorf("file name %q has no version suffix", name)
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v"))
	if err != nil {
		return CaptureFile{}, errors.Wrapf(err, "parsing version of %q", name)
	}
	return CaptureFile{Name: name, Date: parts[0], Base: parts[1], Version: version}, nil
}

// LatestCapturePerDate scans a directory for capture files with the given
// extension and returns the highest-version file for each distinct date,
// sorted by date ascending. Files that do not follow the naming convention
// are skipped.
func LatestCapturePerDate(dir, ext string) ([]CaptureFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", dir)
	}

	latest := make(map[string]CaptureFile)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), "."+ext) {
			continue
		}
		capture, err := ParseCaptureFileName(entry.Name())
		if err != nil {
			continue
		}
		capture.Path = filepath.Join(dir, entry.Name())
		if existing, ok := latest[capture.Date]; !ok || capture.Version > existing.Version {
			latest[capture.Date] = capture
		}
	}

	captures := make([]CaptureFile, 0, len(latest))
	for _, capture := range latest {
		captures = append(captures, capture)
	}
	sort.Slice(captures, func(i, j int) bool { return captures[i].Date < captures[j].Date })
	return captures, nil
}

// NextCaptureVersion returns the next unused version number for a (date,
// base name) pair in a directory.
func NextCaptureVersion(dir, date, base string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "reading directory %s", dir)
	}

	version := 1
	for _, entry := range entries {
		capture, err := ParseCaptureFileName(entry.Name())
		if err != nil {
			continue
		}
		if capture.Date == date && capture.Base == base && capture.Version >= version {
			version = capture.Version + 1
		}
	}
	return version, nil
}
