package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/swarmdb/archive"
	"github.com/hupe1980/swarmdb/archive/ddb"
	"github.com/hupe1980/swarmdb/blobstore"
	"github.com/hupe1980/swarmdb/blobstore/minio"
	"github.com/hupe1980/swarmdb/blobstore/s3"
)

// openArchive builds the blob store and catalog selected by cfg.
func openArchive(ctx context.Context, cfg ArchiveConfig) (blobstore.BlobStore, archive.Catalog, error) {
	switch cfg.Backend {
	case "local":
		return blobstore.NewLocalStore(cfg.Dir), nil, nil

	case "s3":
		if cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("archive.bucket is required for the s3 backend")
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		// The blob prefix is handled by the archiver.
		store := s3.NewStore(client, cfg.Bucket)

		var catalog archive.Catalog
		if cfg.CatalogTable != "" {
			catalog = ddb.NewCatalog(dynamodb.NewFromConfig(awsCfg), cfg.CatalogTable)
		}
		return store, catalog, nil

	case "minio":
		if cfg.Endpoint == "" || cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("archive.endpoint and archive.bucket are required for the minio backend")
		}
		client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("minio client: %w", err)
		}
		return minio.NewStore(client, cfg.Bucket, ""), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
