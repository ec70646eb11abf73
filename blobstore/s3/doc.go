// Package s3 implements blobstore.BlobStore on Amazon S3 using
// aws-sdk-go-v2.
//
// Streaming writes go through the S3 transfer manager, which switches to a
// multipart upload for blobs larger than one part. Reads use ranged
// GetObject requests.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "swarmdb/"
//	})
package s3
