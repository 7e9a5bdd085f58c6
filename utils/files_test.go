package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureFileNameRoundTrip(t *testing.T) {
	name := CaptureFileName("2020-12-15", "Prior Settle", 2, "csv")
	assert.Equal(t, "2020-12-15 ~ Prior Settle ~ v2.csv", name)

	capture, err := ParseCaptureFileName(name)
	require.NoError(t, err)
	assert.Equal(t, "2020-12-15", capture.Date)
	assert.Equal(t, "Prior Settle", capture.Base)
	assert.Equal(t, 2, capture.Version)
}

func TestParseCaptureFileNameRejectsNonConforming(t *testing.T) {
	for _, name := range []string{
		"notes.csv",
		"2020-12-15 ~ Prior Settle.csv",
		"2020-12-15 ~ Prior Settle ~ 2.csv",
		"2020-12-15 ~ Prior Settle ~ vtwo.csv",
	} {
		_, err := ParseCaptureFileName(name)
		assert.Error(t, err, "name %q", name)
	}
}

func touchFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestLatestCapturePerDate(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir,
		"2020-12-14 ~ Prior Settle ~ v1.csv",
		"2020-12-15 ~ Prior Settle ~ v1.csv",
		"2020-12-15 ~ Prior Settle ~ v3.csv",
		"2020-12-15 ~ Prior Settle ~ v2.csv",
		"2020-12-16 ~ Prior Settle ~ v1.xlsx", // wrong extension
		"scratch.csv",                         // non-conforming, skipped
	)

	captures, err := LatestCapturePerDate(dir, "csv")
	require.NoError(t, err)

	require.Len(t, captures, 2)
	assert.Equal(t, "2020-12-14", captures[0].Date)
	assert.Equal(t, 1, captures[0].Version)
	assert.Equal(t, "2020-12-15", captures[1].Date)
	assert.Equal(t, 3, captures[1].Version, "highest version wins per date")
	assert.Equal(t, filepath.Join(dir, "2020-12-15 ~ Prior Settle ~ v3.csv"), captures[1].Path)
}

func TestNextCaptureVersion(t *testing.T) {
	dir := t.TempDir()

	version, err := NextCaptureVersion(dir, "2020-12-15", "Prior Settle")
	require.NoError(t, err)
	assert.Equal(t, 1, version, "an empty directory starts at v1")

	touchFiles(t, dir,
		"2020-12-15 ~ Prior Settle ~ v1.csv",
		"2020-12-15 ~ Prior Settle ~ v2.csv",
		"2020-12-14 ~ Prior Settle ~ v7.csv",
		"2020-12-15 ~ Other Report ~ v9.csv",
	)

	version, err = NextCaptureVersion(dir, "2020-12-15", "Prior Settle")
	require.NoError(t, err)
	assert.Equal(t, 3, version, "other dates and base names do not advance the version")
}
