package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const ioBufferSize = 256 << 10

// File is one artifact written by AtomicSaveToDir.
type File struct {
	Name  string
	Write func(w io.Writer) error
}

// AtomicSaveToDir writes every file to a temp file in dir, in order, then
// renames them over their targets in the same order. If any write fails no
// target is touched.
func AtomicSaveToDir(dir string, files ...File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persistence: create directory %s: %w", dir, err)
	}

	tempFiles := make([]string, 0, len(files))
	defer func() {
		for _, tmp := range tempFiles {
			_ = os.Remove(tmp)
		}
	}()

	for _, f := range files {
		tmp, err := os.CreateTemp(dir, f.Name+".tmp-*")
		if err != nil {
			return fmt.Errorf("persistence: create temp file for %s: %w", f.Name, err)
		}
		tempFiles = append(tempFiles, tmp.Name())
		_ = tmp.Chmod(0o644)

		buf := bufio.NewWriterSize(tmp, ioBufferSize)
		if err := f.Write(buf); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("persistence: write %s: %w", f.Name, err)
		}
		if err := buf.Flush(); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("persistence: flush %s: %w", f.Name, err)
		}
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("persistence: sync %s: %w", f.Name, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("persistence: close %s: %w", f.Name, err)
		}
	}

	for i, f := range files {
		if err := os.Rename(tempFiles[i], filepath.Join(dir, f.Name)); err != nil {
			return fmt.Errorf("persistence: rename %s: %w", f.Name, err)
		}
	}
	tempFiles = nil

	// Best-effort: fsync the directory so the renames are durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}

// LoadFromFile opens filename and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, ioBufferSize))
}
