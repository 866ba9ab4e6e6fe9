// Package vectorstore keeps full-precision copies of indexed vectors.
//
// The store is a single contiguous []float32 addressed by node id, so the
// vector of node i lives at data[i*dim:(i+1)*dim]. A roaring bitmap records
// which slots hold a vector; slots of nodes inserted without storage stay
// zeroed and are reported as absent.
//
// The index facade uses the store to answer Vector(id) and to re-rank beam
// candidates with the reference distance engine.
package vectorstore
