package converter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"tiffsrv/internal/core/domain"
	"tiffsrv/internal/core/port"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// VipsConverter drives the libvips command line tools to read image headers and write tiled
// pyramid TIFFs.
type VipsConverter struct {
	vips       string
	vipsheader string
	tempDir    string
}

// NewVipsConverter locates the vips binaries, in dir when set, otherwise on PATH.
func NewVipsConverter(dir string) (*VipsConverter, error) {
	vc := &VipsConverter{tempDir: os.TempDir()}

	for _, binary := range []struct {
		name   string
		target *string
	}{
		{"vips", &vc.vips},
		{"vipsheader", &vc.vipsheader},
	} {
		path := binary.name
		if dir != "" {
			path = filepath.Join(dir, binary.name)
		}

		resolved, err := exec.LookPath(path)
		if err != nil {
			log.Debug().Str("binary", path).Msg("binary not found")
			return nil, fmt.Errorf("%s binary not available: %w", binary.name, err)
		}

		log.Debug().Str("binary", resolved).Msg("binary found")
		*binary.target = resolved
	}

	out, err := exec.Command(vc.vips, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("vips not usable: %w", err)
	}

	log.Info().Str("version", strings.TrimSpace(string(out))).Msg("using libvips")

	return vc, nil
}

func (v *VipsConverter) Probe(ctx context.Context, path string) (domain.ImageInfo, error) {
	out, err := v.run(ctx, v.vipsheader, "-a", path)
	if err != nil {
		return domain.ImageInfo{}, err
	}

	return parseHeader(out)
}

func (v *VipsConverter) Encode(ctx context.Context, src, dst string, opts port.EncodeOptions) error {
	input := src

	if opts.Bands > 1 {
		expanded, cleanup, err := v.expandBands(ctx, src, opts.Bands)
		if err != nil {
			return err
		}
		defer cleanup()

		input = expanded
	}

	_, err := v.run(ctx, v.vips, tiffsaveArgs(input, dst, opts)...)

	return err
}

// expandBands replicates a single-band image into an sRGB image with the given band count,
// written as a vips native temp file.
func (v *VipsConverter) expandBands(ctx context.Context, src string, bands int) (string, func(), error) {
	joined, err := v.tempPath()
	if err != nil {
		return "", nil, err
	}

	tagged, err := v.tempPath()
	if err != nil {
		return "", nil, err
	}

	staged, err := v.tempPath()
	if err != nil {
		return "", nil, err
	}

	cleanup := func() {
		removeTemp(staged)
		removeTemp(joined)
		removeTemp(tagged)
	}

	// bandjoin takes a space separated image list, so the source is staged under a name
	// without spaces first.
	if _, err := v.run(ctx, v.vips, "copy", src, staged); err != nil {
		cleanup()
		return "", nil, err
	}

	inputs := strings.TrimSpace(strings.Repeat(staged+" ", bands))

	if _, err := v.run(ctx, v.vips, "bandjoin", inputs, joined); err != nil {
		cleanup()
		return "", nil, err
	}

	if _, err := v.run(ctx, v.vips, "copy", joined, tagged, "--interpretation", "srgb"); err != nil {
		cleanup()
		return "", nil, err
	}

	zerolog.Ctx(ctx).Debug().Int("bands", bands).Msg("expanded single band image")

	return tagged, cleanup, nil
}

func (v *VipsConverter) tempPath() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	return filepath.Join(v.tempDir, id.String()+".v"), nil
}

func (v *VipsConverter) run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		zerolog.Ctx(ctx).Error().Str("vipsStderr", msg).Strs("args", args).Msg("vips command failed")
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(binary), err, msg)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(binary), err)
	}

	zerolog.Ctx(ctx).Debug().Str("binary", filepath.Base(binary)).Msg("vips command finished")

	return out, nil
}

func tiffsaveArgs(src, dst string, opts port.EncodeOptions) []string {
	return []string{
		"tiffsave", src, dst,
		"--compression", string(opts.Compression),
		"--Q", strconv.Itoa(opts.Quality),
		"--tile",
		"--tile-width", strconv.Itoa(opts.TileSize),
		"--tile-height", strconv.Itoa(opts.TileSize),
		"--pyramid",
	}
}

// parseHeader reads the "field: value" lines printed by vipsheader -a.
func parseHeader(out []byte) (domain.ImageInfo, error) {
	var info domain.ImageInfo
	found := 0

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}

		var target *int
		switch strings.TrimSpace(key) {
		case "width":
			target = &info.Width
		case "height":
			target = &info.Height
		case "bands":
			target = &info.Bands
		default:
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return domain.ImageInfo{}, fmt.Errorf("invalid header field %q: %w", key, err)
		}
		*target = n
		found++
	}

	if err := scanner.Err(); err != nil {
		return domain.ImageInfo{}, err
	}

	if found < 3 {
		return domain.ImageInfo{}, errors.New("incomplete image header")
	}

	return info, nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Err(err).Msg("could not clean up temp file")
	}
}
