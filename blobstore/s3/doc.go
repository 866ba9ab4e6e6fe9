// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "indexes/")
//	if err != nil {
//	    return err
//	}
//
//	err = idx.SaveToStore(ctx, store, "products")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large graph dumps, aborted when a save fails
//   - CRC32C checksums on every upload
//   - Automatic pagination for listing
//   - DDBCommitStore: CURRENT pointers committed with DynamoDB conditional
//     writes so concurrent savers cannot lose each other's generations
package s3
