package port

import (
	"context"
	"tiffsrv/internal/core/domain"
)

type Converter interface {
	// Convert turns the named source image into a pyramid TIFF, or reports the existing one.
	Convert(ctx context.Context, name string, params domain.ConversionParams) *domain.ConversionResult
	// Exists reports whether a readable output artifact is present for name.
	Exists(name string) bool
}

type Deleter interface {
	// Delete removes the output artifact for name, falling back to suffixed variants.
	Delete(ctx context.Context, name string) *domain.DeletionResult
}

type Authorizer interface {
	// IsAuthorized checks the raw Authorization header of a request.
	IsAuthorized(header string) bool
}
