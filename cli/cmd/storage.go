package cmd

import (
	"context"
	"fmt"
	"os"

	lodelib "github.com/justapithecus/lode/lode"

	"github.com/justapithecus/autotiny/cli/config"
	"github.com/justapithecus/autotiny/lode"
)

// storageBackendName is the backend label used in metrics and logs.
func storageBackendName(sc config.StorageConfig) string {
	if sc.Backend == "" {
		return "none"
	}
	return sc.Backend
}

func s3Config(sc config.StorageConfig) lode.S3Config {
	bucket, prefix := lode.ParseS3Path(sc.Path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       sc.Region,
		Endpoint:     sc.Endpoint,
		UsePathStyle: sc.S3PathStyle,
	}
}

// buildReportClient opens the report store for writing. It returns a nil
// client when no backend is configured.
func buildReportClient(ctx context.Context, sc config.StorageConfig, cfg lode.Config) (lode.Client, error) {
	cfg.Dataset = sc.Dataset
	switch sc.Backend {
	case "":
		return nil, nil
	case "fs":
		if err := os.MkdirAll(sc.Path, 0o755); err != nil {
			return nil, lode.WrapInitError(err, sc.Path)
		}
		return lode.NewLodeClient(cfg, sc.Path)
	case "s3":
		return lode.NewLodeS3Client(ctx, cfg, s3Config(sc))
	default:
		return nil, fmt.Errorf("unknown storage backend %q (must be fs or s3)", sc.Backend)
	}
}

// openReadDataset opens the report store for reading.
func openReadDataset(ctx context.Context, sc config.StorageConfig) (lodelib.Dataset, error) {
	switch sc.Backend {
	case "fs":
		info, err := os.Stat(sc.Path)
		if err != nil {
			return nil, lode.WrapReadError(err, sc.Path)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("storage path %s is not a directory", sc.Path)
		}
		return lode.NewReadDatasetFS(sc.Dataset, sc.Path)
	case "s3":
		return lode.NewReadDatasetS3(ctx, sc.Dataset, s3Config(sc))
	case "":
		return nil, fmt.Errorf("no storage backend configured")
	default:
		return nil, fmt.Errorf("unknown storage backend %q (must be fs or s3)", sc.Backend)
	}
}
