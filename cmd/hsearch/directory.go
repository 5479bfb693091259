package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/hsearch"
	"github.com/hupe1980/hsearch/directory"
	badgerdir "github.com/hupe1980/hsearch/directory/badger"
	miniodir "github.com/hupe1980/hsearch/directory/minio"
	s3dir "github.com/hupe1980/hsearch/directory/s3"
)

// openDirectory returns the directory described by cfg and the index
// options it needs.
func openDirectory(ctx context.Context, cfg DirectoryConfig, logger *slog.Logger) (directory.Directory, []hsearch.IndexOption, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "fs":
		strategy, err := directory.ParseFileSystemAccessStrategyName(cfg.Strategy)
		if err != nil {
			return nil, nil, err
		}
		d, err := directory.NewFS(cfg.Path, strategy)
		if err != nil {
			return nil, nil, err
		}
		return d, nil, nil

	case "memory":
		return directory.NewMemory(), nil, nil

	case "badger":
		d, err := badgerdir.Open(cfg.Path, badgerdir.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return d, []hsearch.IndexOption{hsearch.WithCommitPointer(d.CommitPointer())}, nil

	case "s3":
		if cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("directory: s3 requires a bucket")
		}
		d, err := s3dir.New(ctx, cfg.Bucket, s3dir.WithPrefix(cfg.Prefix), s3dir.WithRegion(cfg.Region))
		if err != nil {
			return nil, nil, err
		}
		var idxOpts []hsearch.IndexOption
		if cfg.CommitTable != "" {
			awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
			if err != nil {
				return nil, nil, fmt.Errorf("directory: load aws config: %w", err)
			}
			uri := "s3://" + cfg.Bucket + "/" + strings.Trim(cfg.Prefix, "/")
			store := s3dir.NewCommitStore(dynamodb.NewFromConfig(awsCfg), cfg.CommitTable, uri)
			idxOpts = append(idxOpts, hsearch.WithCommitPointer(store))
		}
		cached, err := withCache(d, cfg)
		return cached, idxOpts, err

	case "minio":
		if cfg.Endpoint == "" || cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("directory: minio requires an endpoint and a bucket")
		}
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("directory: minio client: %w", err)
		}
		cached, err := withCache(miniodir.New(client, cfg.Bucket, cfg.Prefix), cfg)
		return cached, nil, err

	default:
		return nil, nil, fmt.Errorf("directory: unknown type %q", cfg.Type)
	}
}

func withCache(d directory.Directory, cfg DirectoryConfig) (directory.Directory, error) {
	if cfg.CacheBlocks <= 0 {
		return d, nil
	}
	return directory.NewCaching(d, directory.WithCacheBlocks(cfg.CacheBlocks))
}
