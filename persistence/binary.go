package persistence

import (
	"encoding/binary"
	"io"
	"math"
)

// scratchSize bounds the staging buffer used for slice encoding.
const scratchSize = 64 << 10

// Writer encodes little-endian values. The first error is sticky: later calls
// are no-ops and Err reports it.
type Writer struct {
	w       io.Writer
	scratch []byte
	err     error
}

// NewWriter creates a new binary writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered.
func (bw *Writer) Err() error {
	return bw.err
}

func (bw *Writer) write(p []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(p)
}

func (bw *Writer) Uint8(v uint8) {
	bw.write([]byte{v})
}

func (bw *Writer) Uint16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	bw.write(buf[:])
}

func (bw *Writer) Uint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	bw.write(buf[:])
}

func (bw *Writer) Uint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	bw.write(buf[:])
}

func (bw *Writer) Float32(v float32) {
	bw.Uint32(math.Float32bits(v))
}

// Float32s writes the raw values of vec without a length prefix.
func (bw *Writer) Float32s(vec []float32) {
	for len(vec) > 0 && bw.err == nil {
		n := min(len(vec), scratchSize/4)
		buf := bw.buffer(n * 4)
		for i, v := range vec[:n] {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		bw.write(buf)
		vec = vec[n:]
	}
}

// Uint32s writes the raw values of s without a length prefix.
func (bw *Writer) Uint32s(s []uint32) {
	for len(s) > 0 && bw.err == nil {
		n := min(len(s), scratchSize/4)
		buf := bw.buffer(n * 4)
		for i, v := range s[:n] {
			binary.LittleEndian.PutUint32(buf[i*4:], v)
		}
		bw.write(buf)
		s = s[n:]
	}
}

// Bytes writes p verbatim.
func (bw *Writer) Bytes(p []byte) {
	bw.write(p)
}

func (bw *Writer) buffer(n int) []byte {
	if cap(bw.scratch) < n {
		bw.scratch = make([]byte, n)
	}
	return bw.scratch[:n]
}

// Reader decodes little-endian values with a sticky first error. A short read
// surfaces as io.ErrUnexpectedEOF.
type Reader struct {
	r       io.Reader
	scratch []byte
	err     error
}

// NewReader creates a new binary reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered.
func (br *Reader) Err() error {
	return br.err
}

func (br *Reader) read(p []byte) bool {
	if br.err != nil {
		return false
	}
	if _, err := io.ReadFull(br.r, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		br.err = err
		return false
	}
	return true
}

func (br *Reader) Uint8() uint8 {
	var buf [1]byte
	if !br.read(buf[:]) {
		return 0
	}
	return buf[0]
}

func (br *Reader) Uint16() uint16 {
	var buf [2]byte
	if !br.read(buf[:]) {
		return 0
	}
	return binary.LittleEndian.Uint16(buf[:])
}

func (br *Reader) Uint32() uint32 {
	var buf [4]byte
	if !br.read(buf[:]) {
		return 0
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func (br *Reader) Uint64() uint64 {
	var buf [8]byte
	if !br.read(buf[:]) {
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (br *Reader) Float32() float32 {
	return math.Float32frombits(br.Uint32())
}

// Float32sInto fills dst.
func (br *Reader) Float32sInto(dst []float32) {
	for len(dst) > 0 && br.err == nil {
		n := min(len(dst), scratchSize/4)
		buf := br.buffer(n * 4)
		if !br.read(buf) {
			return
		}
		for i := range dst[:n] {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		dst = dst[n:]
	}
}

// Uint32sInto fills dst.
func (br *Reader) Uint32sInto(dst []uint32) {
	for len(dst) > 0 && br.err == nil {
		n := min(len(dst), scratchSize/4)
		buf := br.buffer(n * 4)
		if !br.read(buf) {
			return
		}
		for i := range dst[:n] {
			dst[i] = binary.LittleEndian.Uint32(buf[i*4:])
		}
		dst = dst[n:]
	}
}

func (br *Reader) buffer(n int) []byte {
	if cap(br.scratch) < n {
		br.scratch = make([]byte, n)
	}
	return br.scratch[:n]
}
