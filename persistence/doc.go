// Package persistence provides the on-disk building blocks of an index directory.
//
// An index is saved as three artifacts:
//
//   - the graph dump, written by the graph itself through Writer/Reader
//   - the id mappings file
//   - metadata.yaml, which records the dimension, metric, vector-storage flag,
//     artifact names, compression and the checksums of the two binary files
//
// Binary artifacts start with a Header (magic + version) and end with a CRC32C
// trailer. Files are replaced atomically: written to a temp file in the same
// directory, fsynced, then renamed over the target.
//
// All integers and floats are little-endian regardless of the host.
package persistence
