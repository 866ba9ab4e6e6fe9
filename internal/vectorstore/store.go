package vectorstore

import (
	"errors"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/hnswdb/internal/hnsw"
)

// ErrWrongDimension is returned when a vector's length differs from the store dimension.
var ErrWrongDimension = errors.New("vectorstore: wrong dimension")

// Store holds full-precision vectors in one flat slice indexed by node id.
// Slots that were never written are tracked by a presence bitmap.
type Store struct {
	dim int

	mu      sync.RWMutex
	data    []float32
	present *roaring.Bitmap
}

// New creates an empty store for vectors of length dim.
func New(dim int) *Store {
	return &Store{
		dim:     dim,
		present: roaring.New(),
	}
}

// Dimension returns the vector length.
func (s *Store) Dimension() int { return s.dim }

// Set copies v into the slot for id, growing the store as needed.
func (s *Store) Set(id hnsw.NodeID, v []float32) error {
	if len(v) != s.dim {
		return ErrWrongDimension
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	end := (int(id) + 1) * s.dim
	if end > len(s.data) {
		if end > cap(s.data) {
			grown := make([]float32, end, max(end, 2*cap(s.data)))
			copy(grown, s.data)
			s.data = grown
		} else {
			s.data = s.data[:end]
		}
	}

	copy(s.data[int(id)*s.dim:end], v)
	s.present.Add(uint32(id))
	return nil
}

// Get returns the stored vector for id. The returned slice aliases the store
// and must not be modified.
func (s *Store) Get(id hnsw.NodeID) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.present.Contains(uint32(id)) {
		return nil, false
	}
	off := int(id) * s.dim
	return s.data[off : off+s.dim : off+s.dim], true
}

// Contains reports whether id has a stored vector.
func (s *Store) Contains(id hnsw.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.present.Contains(uint32(id))
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int(s.present.GetCardinality())
}

// Bytes returns the memory held by vector data.
func (s *Store) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(cap(s.data))*4 + int64(s.present.GetSizeInBytes())
}
