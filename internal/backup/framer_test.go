package backup

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyTag(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, content []byte) string {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0644))
		return path
	}

	valid := write("valid.bak", append(append([]byte(nil), DefaultTag...), []byte("payload")...))
	tagOnly := write("tagonly.bak", DefaultTag)
	wrongTag := write("wrong.bak", []byte("NOTABACKUP!payload"))
	short := write("short.bak", []byte("MYS"))
	empty := write("empty.bak", nil)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"valid file", valid, true},
		{"tag with no payload", tagOnly, true},
		{"wrong tag", wrongTag, false},
		{"file shorter than tag", short, false},
		{"empty file", empty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyTag(tt.path, DefaultTag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifyTag_MissingFile(t *testing.T) {
	_, err := VerifyTag(filepath.Join(t.TempDir(), "missing.bak"), DefaultTag)
	require.Error(t, err)
}

func TestSelectLatest(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"20250101-120000.bak",
		"20250615-080000.bak",
		"20240101-235959.bak",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "20260101-000000.bak"), 0755))

	latest, err := SelectLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20250615-080000.bak"), latest)
}

func TestSelectLatest_EmptyDirectory(t *testing.T) {
	latest, err := SelectLatest(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestSelectLatest_MissingDirectory(t *testing.T) {
	_, err := SelectLatest(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestTimestampFilename(t *testing.T) {
	name := TimestampFilename("app", "2.00")
	assert.Regexp(t, regexp.MustCompile(`^\d{8}-\d{6}\.bak$`), name)
}

func TestDefaultTagLength(t *testing.T) {
	assert.Len(t, DefaultTag, 11)
}
