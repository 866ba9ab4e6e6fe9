package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// GraphMagic identifies graph dump files (ASCII: "HNSW").
	GraphMagic uint32 = 0x484E5357
	// MappingsMagic identifies id mapping files (ASCII: "HMAP").
	MappingsMagic uint32 = 0x484D4150

	// GraphVersion is the current graph dump format version.
	GraphVersion uint16 = 1
	// MappingsVersion is the current mappings format version.
	MappingsVersion uint16 = 1

	// HeaderSize is the encoded size of a Header.
	HeaderSize = 8
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	// ErrCorrupted is returned when a structurally invalid artifact is decoded.
	ErrCorrupted = errors.New("corrupted data")
)

// Header is the 8-byte header at the start of every binary artifact.
type Header struct {
	Magic   uint32
	Version uint16
	Flags   uint16
}

// WriteHeader writes h to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	binary.LittleEndian.PutUint16(buf[6:], h.Flags)
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads a header and validates it against the expected magic and version.
func ReadHeader(r io.Reader, magic uint32, version uint16) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	h := Header{
		Magic:   binary.LittleEndian.Uint32(buf[0:]),
		Version: binary.LittleEndian.Uint16(buf[4:]),
		Flags:   binary.LittleEndian.Uint16(buf[6:]),
	}
	if h.Magic != magic {
		return h, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrInvalidMagic, h.Magic, magic)
	}
	if h.Version != version {
		return h, fmt.Errorf("%w: got %d, want %d", ErrInvalidVersion, h.Version, version)
	}
	return h, nil
}

// Corruptf returns an error wrapping ErrCorrupted.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}
