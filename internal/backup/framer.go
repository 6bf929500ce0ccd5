package backup

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultTag is the fixed prefix marking a file as a backup container
var DefaultTag = []byte("MYSQLBAK-01")

// BackupExtension is the suffix of generated backup filenames
const BackupExtension = ".bak"

// FilenameFunc generates a backup filename. Generated names must sort
// chronologically under plain lexicographic ordering or SelectLatest picks
// the wrong file. The version argument is the highest applied schema
// version, or empty when no tracking table exists.
type FilenameFunc func(database string, version string) string

// TimestampFilename is the default FilenameFunc: YYYYMMDD-HHmmss.bak
func TimestampFilename(database string, version string) string {
	return time.Now().Format("20060102-150405") + BackupExtension
}

// WriteTag writes the tag bytes to w. The caller must not write any payload
// byte before this returns.
func WriteTag(w io.Writer, tag []byte) error {
	if _, err := w.Write(tag); err != nil {
		return NewStorageError("failed to write backup tag", err)
	}
	return nil
}

// VerifyTag reports whether the file starts with exactly the tag bytes. A
// file shorter than the tag fails verification rather than erroring.
func VerifyTag(path string, tag []byte) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, NewStorageError("failed to open backup file", err)
	}
	defer f.Close()

	head := make([]byte, len(tag))
	if _, err := io.ReadFull(f, head); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, NewStorageError("failed to read backup tag", err)
	}

	return bytes.Equal(head, tag), nil
}

// SelectLatest returns the lexicographically greatest backup file in dir, or
// empty when the directory holds none. With timestamp filenames greatest
// means newest.
func SelectLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", NewStorageError("failed to read backup directory", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), BackupExtension) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return filepath.Join(dir, names[0]), nil
}
