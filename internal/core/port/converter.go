package port

import (
	"context"
	"tiffsrv/internal/core/domain"
)

// EncodeOptions are the parameters handed to the pyramid encoder engine.
type EncodeOptions struct {
	Compression domain.Compression
	Quality     int
	TileSize    int
	// Bands, when non-zero, asks the engine to replicate a single-band source into this many bands
	// before saving.
	Bands int
}

type PyramidEncoder interface {
	// Probe reads the header of the image at path and reports its dimensions and band count.
	Probe(ctx context.Context, path string) (domain.ImageInfo, error)
	// Encode reads the image at src and writes a tiled multi-resolution TIFF to dst.
	Encode(ctx context.Context, src, dst string, opts EncodeOptions) error
}
