package domain

import (
	"errors"
	"strconv"
)

type Compression string

const (
	CompressionNone    Compression = "none"
	CompressionDeflate Compression = "deflate"
	CompressionJPEG    Compression = "jpeg"
	CompressionWebP    Compression = "webp"
	CompressionLZW     Compression = "lzw"
	CompressionZstd    Compression = "zstd"
)

// Compressions lists every compression scheme accepted from callers.
var Compressions = []Compression{
	CompressionNone,
	CompressionDeflate,
	CompressionJPEG,
	CompressionWebP,
	CompressionLZW,
	CompressionZstd,
}

// ParseCompression reports whether s names a supported compression scheme.
func ParseCompression(s string) (Compression, bool) {
	for _, c := range Compressions {
		if string(c) == s {
			return c, true
		}
	}

	return "", false
}

type ConversionParams struct {
	Compression Compression
	Quality     int
	TileSize    int
}

// Defaults holds the configured fallbacks for caller-supplied conversion parameters.
type Defaults struct {
	Compression Compression
	Quality     int
	TileSize    int
}

const (
	MinQuality = 1
	MaxQuality = 100
)

// Resolve builds ConversionParams from raw request values. Unknown compressions, quality outside
// MinQuality..MaxQuality and missing, non-numeric or non-positive tile sizes fall back to the
// defaults.
func (d Defaults) Resolve(compression, quality, tileSize string) ConversionParams {
	p := ConversionParams{
		Compression: d.Compression,
		Quality:     d.Quality,
		TileSize:    d.TileSize,
	}

	if c, ok := ParseCompression(compression); ok {
		p.Compression = c
	}

	if q, err := strconv.Atoi(quality); err == nil && q >= MinQuality && q <= MaxQuality {
		p.Quality = q
	}

	if t, err := strconv.Atoi(tileSize); err == nil && t > 0 {
		p.TileSize = t
	}

	return p
}

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInvalid
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// OutcomeOf classifies an error returned by a convert or delete operation.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidName):
		return OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeFailed
	}
}

type ConversionResult struct {
	Image       string      `json:"image"`
	Width       int         `json:"width,omitempty"`
	Height      int         `json:"height,omitempty"`
	Bytes       int64       `json:"bytes,omitempty"`
	Compression Compression `json:"compression,omitempty"`
	Quality     int         `json:"quality,omitempty"`
	Time        float64     `json:"time"`
	Action      string      `json:"action,omitempty"`
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`

	Skipped bool    `json:"-"`
	Outcome Outcome `json:"-"`
}

func (r *ConversionResult) Status() Outcome {
	return r.Outcome
}

type DeletionResult struct {
	Image   string `json:"image"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Outcome Outcome `json:"-"`
}

func (r *DeletionResult) Status() Outcome {
	return r.Outcome
}

// ImageInfo describes an image as reported by the encoder engine.
type ImageInfo struct {
	Width  int
	Height int
	Bands  int
}
