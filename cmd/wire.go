package cmd

import (
	"context"
	"errors"
	"fmt"
	"tiffsrv/internal/adapters/converter"
	"tiffsrv/internal/adapters/file"
	"tiffsrv/internal/adapters/metrics"
	"tiffsrv/internal/adapters/objectstore"
	"tiffsrv/internal/config"
	"tiffsrv/internal/core/port"
	"tiffsrv/internal/core/service"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

type services struct {
	converter *service.Converter
	deleter   *service.Deleter
	metrics   *metrics.Prometheus
}

// wire checks the configured directories, connects the optional object store and builds the
// conversion and deletion services.
func wire(ctx context.Context, c *config.Config) (*services, error) {
	if err := file.CheckDir(c.Paths.Output, unix.W_OK); err != nil {
		return nil, fmt.Errorf("output directory needs to be writable: %w", err)
	}

	if err := file.CheckDir(c.Paths.Input, unix.R_OK); err != nil {
		return nil, fmt.Errorf("input directory needs to be readable: %w", err)
	}

	fetcher, err := connectObjectStore(ctx, c)
	if err != nil {
		return nil, err
	}

	encoder, err := converter.NewVipsConverter(c.VipsPath)
	if err != nil {
		return nil, fmt.Errorf("failed initializing vips converter: %w", err)
	}

	files := file.NewLocal()
	locks := service.NewKeyedMutex()
	m := metrics.NewPrometheus()

	return &services{
		converter: service.NewConverter(encoder, fetcher, files, c.Paths, locks, int64(c.MaxConcurrent), m),
		deleter:   service.NewDeleter(files, c.Paths, locks, m),
		metrics:   m,
	}, nil
}

// connectObjectStore returns nil when S3 is not configured, or when the bucket is missing or
// forbidden. Any other connection failure is fatal.
func connectObjectStore(ctx context.Context, c *config.Config) (port.ObjectFetcher, error) {
	if !c.S3.Enabled() {
		return nil, nil
	}

	if err := file.CheckDir(c.Paths.Input, unix.W_OK); err != nil {
		return nil, fmt.Errorf("input directory needs to be writable when using S3: %w", err)
	}

	fetcher, err := objectstore.NewS3Fetcher(ctx, c.S3.Host, c.S3.ID, c.S3.Secret, c.S3.Bucket)
	switch {
	case errors.Is(err, objectstore.ErrBucketNotFound), errors.Is(err, objectstore.ErrForbidden):
		log.Warn().Err(err).Str("host", c.S3.Host).Msg("object store disabled")
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("unable to connect to S3 bucket %q: %w", c.S3.Bucket, err)
	}

	return fetcher, nil
}
