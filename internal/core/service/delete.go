package service

import (
	"context"
	"fmt"
	"tiffsrv/internal/core/domain"
	"tiffsrv/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Deleter removes output artifacts, resolving suffixed variants when the exact name is absent.
type Deleter struct {
	files   port.FileStore
	paths   domain.Paths
	locks   *KeyedMutex
	metrics port.Metrics
}

func NewDeleter(files port.FileStore, paths domain.Paths, locks *KeyedMutex, metrics port.Metrics) *Deleter {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Deleter{files: files, paths: paths, locks: locks, metrics: metrics}
}

func (d *Deleter) Delete(_ context.Context, name string) *domain.DeletionResult {
	l := log.With().
		Str("image", name).
		Str("action", domain.ActionDelete).
		Logger()

	result := d.delete(name)
	if result.Success {
		l.Info().Str("path", result.Image).Msg("deleted image")
	} else {
		l.Warn().Str("error", result.Error).Msg("deletion failed")
	}

	d.metrics.ObserveDeletion(result.Outcome)

	return result
}

func (d *Deleter) delete(name string) *domain.DeletionResult {
	if err := domain.ValidateName(name); err != nil {
		return deletionFailure(name, err)
	}

	unlock := d.locks.Lock(name)
	defer unlock()

	target, err := d.resolve(name)
	if err != nil {
		return deletionFailure(name, err)
	}

	rel := d.paths.Relative(target)

	if !d.files.Writable(target) {
		return deletionFailure(rel, domain.ErrNotWritable)
	}

	if err := d.files.Remove(target); err != nil {
		return deletionFailure(rel, fmt.Errorf("removing output image: %w", err))
	}

	return &domain.DeletionResult{
		Image:   rel,
		Action:  domain.ActionDelete,
		Success: true,
		Outcome: domain.OutcomeOK,
	}
}

// resolve returns the exact artifact path, or the lexically first suffixed variant.
func (d *Deleter) resolve(name string) (string, error) {
	exact := d.paths.Artifact(name)
	if d.files.Readable(exact) {
		return exact, nil
	}

	matches, err := d.files.Glob(d.paths.Pattern(name))
	if err != nil {
		return "", fmt.Errorf("searching for output image: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no output image for %s", domain.ErrNotFound, name)
	}

	if len(matches) > 1 {
		log.Debug().Strs("matches", matches).Msg("several output variants match, removing the first")
	}

	return matches[0], nil
}

func deletionFailure(image string, err error) *domain.DeletionResult {
	return &domain.DeletionResult{
		Image:   image,
		Action:  domain.ActionDelete,
		Success: false,
		Error:   err.Error(),
		Outcome: domain.OutcomeOf(err),
	}
}
