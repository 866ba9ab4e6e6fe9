// Package hnsw implements Hierarchical Navigable Small World graphs.
//
// HNSW provides approximate nearest neighbor search with high recall and
// sub-linear query time. Nodes are identified by dense NodeIDs assigned in
// insertion order; the caller owns any mapping to external identifiers.
//
// # Features
//
//   - Concurrent inserts and searches (per-layer and per-node locks)
//   - VAMANA-style neighbor diversification (Alpha >= 1)
//   - Lock-free RNG (xorshift64, CAS loop) for level assignment
//   - Multi-entry search for hard queries
//   - Portable binary dump with a CRC32C trailer
//
// # Parameters
//
//   - M: Max connections per node above level 0; 2*M at level 0 (default: 16)
//   - EFConstruction: Construction beam width (default: 200)
//   - Alpha: Diversification factor; 1.0 is classic HNSW pruning
//
// # Locking
//
// Lock order is entry point, vectors, layer table, layer. Adjacency lists are
// locked before the vector lock and pairs of adjacency lists in ascending
// NodeID order.
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
//
// Subramanya et al., "DiskANN: Fast Accurate Billion-point Nearest Neighbor
// Search on a Single Node", NeurIPS 2019.
package hnsw
