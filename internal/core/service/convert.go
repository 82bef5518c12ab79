package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"tiffsrv/internal/core/domain"
	"tiffsrv/internal/core/port"
	"time"

	"github.com/docker/go-units"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Converter runs the conversion decision chain: skip an existing artifact, fetch a missing source
// from the object store, fail, or encode.
type Converter struct {
	encoder port.PyramidEncoder
	fetcher port.ObjectFetcher
	files   port.FileStore
	paths   domain.Paths
	locks   *KeyedMutex
	encodes *semaphore.Weighted
	metrics port.Metrics
}

// NewConverter wires a Converter. fetcher may be nil when no object store is configured.
func NewConverter(encoder port.PyramidEncoder, fetcher port.ObjectFetcher, files port.FileStore, paths domain.Paths,
	locks *KeyedMutex, maxConcurrent int64, metrics port.Metrics) *Converter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Converter{
		encoder: encoder,
		fetcher: fetcher,
		files:   files,
		paths:   paths,
		locks:   locks,
		encodes: semaphore.NewWeighted(maxConcurrent),
		metrics: metrics,
	}
}

func (c *Converter) Exists(name string) bool {
	if domain.ValidateName(name) != nil {
		return false
	}

	return c.files.Readable(c.paths.Artifact(name))
}

func (c *Converter) Convert(ctx context.Context, name string, params domain.ConversionParams) *domain.ConversionResult {
	l := log.With().
		Str("image", name).
		Str("action", domain.ActionConvert).
		Logger()

	if err := domain.ValidateName(name); err != nil {
		l.Warn().Err(err).Msg("rejected image name")
		c.metrics.ObserveConversion(domain.OutcomeInvalid, false, 0)
		return conversionFailure(name, err, 0)
	}

	// Fetch and encode run to completion even if the caller goes away.
	ctx = l.WithContext(context.WithoutCancel(ctx))

	unlock := c.locks.Lock(name)
	defer unlock()

	start := time.Now()

	result, err := c.convert(ctx, name, params, start)
	elapsed := time.Since(start)
	if err != nil {
		l.Error().Err(err).Dur("elapsed", elapsed).Msg("conversion failed")
		result = conversionFailure(name, err, elapsed.Seconds())
	}

	c.metrics.ObserveConversion(result.Outcome, result.Skipped, elapsed)

	return result
}

func (c *Converter) convert(ctx context.Context, name string, params domain.ConversionParams,
	start time.Time) (*domain.ConversionResult, error) {
	l := zerolog.Ctx(ctx)
	source := c.paths.Source(name)
	output := c.paths.Artifact(name)

	if c.files.Readable(output) {
		return c.existing(ctx, name, output)
	}

	keep := true
	defer func() {
		if !keep {
			c.files.RemoveQuietly(source)
		}
	}()

	if c.fetcher != nil && !c.files.Exists(source) {
		if err := c.files.MkdirAll(filepath.Dir(source)); err != nil {
			return nil, fmt.Errorf("%w: preparing input directory: %w", domain.ErrTransfer, err)
		}

		keep = false

		size, err := c.fetcher.Fetch(ctx, name, source)
		c.metrics.ObserveFetch(size, err)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrTransfer, err)
		}

		l.Info().Str("size", units.HumanSize(float64(size))).Msg("downloaded source from object store")

		if size == 0 {
			return nil, fmt.Errorf("%w: empty object", domain.ErrTransfer)
		}
	}

	if !c.files.Readable(source) {
		return nil, fmt.Errorf("%w: input image not readable", domain.ErrNotFound)
	}

	info, err := c.encoder.Probe(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: reading source: %w", domain.ErrEncode, err)
	}

	opts := port.EncodeOptions{
		Compression: params.Compression,
		Quality:     params.Quality,
		TileSize:    params.TileSize,
	}

	// The webp codec cannot store single-band images.
	if info.Bands == 1 && params.Compression == domain.CompressionWebP {
		opts.Bands = 3
	}

	size, err := c.encode(ctx, source, output, opts)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)

	l.Info().
		Int("width", info.Width).
		Int("height", info.Height).
		Str("size", units.HumanSize(float64(size))).
		Str("compression", string(params.Compression)).
		Dur("elapsed", elapsed).
		Msg("converted image")

	return &domain.ConversionResult{
		Image:       name,
		Width:       info.Width,
		Height:      info.Height,
		Bytes:       size,
		Compression: params.Compression,
		Quality:     params.Quality,
		Time:        elapsed.Seconds(),
		Success:     true,
		Outcome:     domain.OutcomeOK,
	}, nil
}

// existing reports an artifact produced by an earlier request without re-encoding it.
func (c *Converter) existing(ctx context.Context, name, output string) (*domain.ConversionResult, error) {
	size, err := c.files.Size(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}

	if size == 0 {
		return nil, domain.ErrEmptyOutput
	}

	info, err := c.encoder.Probe(ctx, output)
	if err != nil {
		return nil, fmt.Errorf("%w: reading existing output: %w", domain.ErrEncode, err)
	}

	zerolog.Ctx(ctx).Debug().Msg("output already exists, skipping conversion")

	return &domain.ConversionResult{
		Image:   name,
		Width:   info.Width,
		Height:  info.Height,
		Bytes:   size,
		Time:    0,
		Success: true,
		Skipped: true,
		Outcome: domain.OutcomeOK,
	}, nil
}

// encode writes the pyramid into a temporary file next to output and publishes it with a rename.
func (c *Converter) encode(ctx context.Context, source, output string, opts port.EncodeOptions) (int64, error) {
	if err := c.files.MkdirAll(filepath.Dir(output)); err != nil {
		return 0, fmt.Errorf("%w: preparing output directory: %w", domain.ErrEncode, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", output, id.String())

	if err := c.encodes.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}
	err = c.encoder.Encode(ctx, source, tmp, opts)
	c.encodes.Release(1)

	if err != nil {
		c.files.RemoveQuietly(tmp)
		return 0, fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}

	size, err := c.files.Size(tmp)
	if err != nil {
		c.files.RemoveQuietly(tmp)
		return 0, fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}

	if size == 0 {
		c.files.RemoveQuietly(tmp)
		return 0, domain.ErrEmptyOutput
	}

	if err := c.files.Rename(tmp, output); err != nil {
		c.files.RemoveQuietly(tmp)
		return 0, fmt.Errorf("%w: publishing output: %w", domain.ErrEncode, err)
	}

	return size, nil
}

func conversionFailure(name string, err error, elapsed float64) *domain.ConversionResult {
	return &domain.ConversionResult{
		Image:   name,
		Error:   conversionMessage(name, err),
		Action:  domain.ActionConvert,
		Time:    elapsed,
		Success: false,
		Outcome: domain.OutcomeOf(err),
	}
}

func conversionMessage(name string, err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrNotFound):
		return err.Error()
	case errors.Is(err, domain.ErrTransfer):
		return fmt.Sprintf("error downloading %s: %s", name, err)
	default:
		return fmt.Sprintf("error converting image %s: %s", name, err)
	}
}
