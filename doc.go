// Package blobsync uploads local files to an object store container and
// skips files whose remote copy is already equivalent.
//
// Every file runs through its own pipeline: fingerprint the local file and
// the remote object, compare them, upload when needed (in chunks for large
// files) and record the content digest and modification time as object
// metadata so the next run can skip unchanged files. Pipelines run on a
// bounded worker pool and one file's failure never aborts its siblings.
//
// Key features:
//   - S3 (aws-sdk-go-v2) and MinIO (minio-go) backends behind one client
//   - Tree sync with doublestar include/exclude patterns, or explicit file lists
//   - Chunked uploads with per-chunk exponential backoff
//   - Bounded file and network concurrency
//   - Per-file outcomes, partial metadata failures reported separately
//   - Optional Prometheus metrics and structured slog logging
//
// Example usage:
//
//	creds, err := blobsync.LoadCredentials("/etc/blobsync/credentials")
//	if err != nil {
//	    return err
//	}
//	client, err := blobsync.New(ctx, "site-assets", creds,
//	    blobsync.WithParallelism(8),
//	    blobsync.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Sync(ctx, "./public", blobsync.WithDestinationFolder("v2"))
//	if err != nil {
//	    // result is still populated when individual files failed
//	    return err
//	}
//	fmt.Printf("uploaded %d, skipped %d\n", result.FilesUploaded, result.FilesSkipped)
package blobsync
