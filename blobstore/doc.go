// Package blobstore provides storage abstraction for saved index generations.
//
// BlobStore is the interface for reading and writing artifact blobs (graph
// dumps, mappings, metadata and the CURRENT pointer). Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem, temp file plus rename on Close
//   - MemoryStore: In-memory, for tests
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.DDBCommitStore: S3 plus a DynamoDB conditional write for CURRENT
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)            // Open for reading
//	    Create(ctx, name) (WritableBlob, error)  // Create for writing
//	    Put(ctx, name, data) error               // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Writable blobs that implement Abortable have partial uploads discarded
// when WriteStream fails.
package blobstore
