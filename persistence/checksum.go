package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// Checksums use CRC32-Castagnoli, which is hardware accelerated on amd64 and
// arm64. They detect accidental corruption only; they are not tamper proof.

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// ChecksumWriter wraps an io.Writer and computes a running CRC32C checksum.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash32
	n    int64
}

// NewChecksumWriter creates a new checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: crc32.New(crc32cTable),
	}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		_, _ = cw.hash.Write(p[:n])
		cw.n += int64(n)
	}
	return n, err
}

// Sum returns the current checksum value.
func (cw *ChecksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}

// Count returns the number of bytes written so far.
func (cw *ChecksumWriter) Count() int64 {
	return cw.n
}

// WriteTrailer writes the checksum of everything written so far to the
// underlying writer. The trailer itself is not part of the checksum.
func (cw *ChecksumWriter) WriteTrailer() error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], cw.Sum())
	n, err := cw.w.Write(buf[:])
	cw.n += int64(n)
	return err
}

// ChecksumReader wraps an io.Reader and computes a running CRC32C checksum.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash32
}

// NewChecksumReader creates a new checksumming reader.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: crc32.New(crc32cTable),
	}
}

// Read implements io.Reader.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		_, _ = cr.hash.Write(p[:n])
	}
	return n, err
}

// Sum returns the current checksum value.
func (cr *ChecksumReader) Sum() uint32 {
	return cr.hash.Sum32()
}

// Verify checks if the computed checksum matches the expected value.
func (cr *ChecksumReader) Verify(expected uint32) error {
	if actual := cr.Sum(); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// VerifyTrailer reads the 4-byte trailer from the underlying reader (outside
// the checksum) and compares it with the running checksum.
func (cr *ChecksumReader) VerifyTrailer() error {
	sum := cr.Sum()
	var buf [4]byte
	if _, err := io.ReadFull(cr.r, buf[:]); err != nil {
		return fmt.Errorf("read checksum trailer: %w", err)
	}
	expected := binary.LittleEndian.Uint32(buf[:])
	if sum != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: sum}
	}
	return nil
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Is makes checksum mismatches match ErrCorrupted.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrCorrupted
}

// IsChecksumMismatch returns true if err is a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	var cm *ChecksumMismatchError
	return errors.As(err, &cm)
}
