package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"tiffsrv/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Address          string
	Paths            domain.Paths
	Token            string
	Defaults         domain.Defaults
	MaxConcurrent    int
	BatchConcurrency int
	VipsPath         string
	S3               S3
	LogLevel         zerolog.Level
	LogConsole       bool
}

type S3 struct {
	Host   string
	ID     string
	Secret string
	Bucket string
}

// Enabled reports whether every connection setting for the object store is present.
func (s S3) Enabled() bool {
	return s.Host != "" && s.ID != "" && s.Secret != "" && s.Bucket != ""
}

// bindings maps configuration keys to the environment variables the service has always read.
var bindings = map[string]string{
	"server.address":         "LISTEN",
	"paths.input":            "PREFIX",
	"paths.output":           "TIFF_PREFIX",
	"auth.token":             "TOKEN",
	"convert.compression":    "COMPRESSION",
	"convert.quality":        "QUALITY",
	"convert.tilesize":       "TILESIZE",
	"convert.max_concurrent": "MAX_CONCURRENT",
	"convert.vips_path":      "VIPS_PATH",
	"batch.concurrency":      "BATCH_CONCURRENCY",
	"s3.host":                "S3_HOST",
	"s3.id":                  "S3_ID",
	"s3.secret":              "S3_SECRET",
	"s3.bucket":              "S3_BUCKET",
	"log.level":              "LOG_LEVEL",
	"log.console":            "LOG_CONSOLE",
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) error {
	v.SetDefault("server.address", ":5000")
	v.SetDefault("paths.input", "/images/")
	v.SetDefault("paths.output", "/home/tiff/")
	v.SetDefault("auth.token", "")
	v.SetDefault("convert.compression", string(domain.CompressionWebP))
	v.SetDefault("convert.quality", 50)
	v.SetDefault("convert.tilesize", 256)
	v.SetDefault("convert.max_concurrent", runtime.NumCPU())
	v.SetDefault("convert.vips_path", "")
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("error binding %s to %s: %w", key, env, err)
		}
	}

	return nil
}

// Load reads an optional TOML file into v and builds a validated Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := SetDefaults(v); err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	compression, ok := domain.ParseCompression(strings.ToLower(v.GetString("convert.compression")))
	if !ok {
		return nil, fmt.Errorf("invalid default compression %q", v.GetString("convert.compression"))
	}

	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("log.level")))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	c := &Config{
		Address: v.GetString("server.address"),
		Paths: domain.Paths{
			Input:  v.GetString("paths.input"),
			Output: v.GetString("paths.output"),
		},
		Token: v.GetString("auth.token"),
		Defaults: domain.Defaults{
			Compression: compression,
			Quality:     v.GetInt("convert.quality"),
			TileSize:    v.GetInt("convert.tilesize"),
		},
		MaxConcurrent:    v.GetInt("convert.max_concurrent"),
		BatchConcurrency: v.GetInt("batch.concurrency"),
		VipsPath:         v.GetString("convert.vips_path"),
		S3: S3{
			Host:   v.GetString("s3.host"),
			ID:     v.GetString("s3.id"),
			Secret: v.GetString("s3.secret"),
			Bucket: v.GetString("s3.bucket"),
		},
		LogLevel:   level,
		LogConsole: v.GetBool("log.console"),
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Paths.Input == "" {
		errs = append(errs, errors.New("input prefix must not be empty"))
	}

	if c.Paths.Output == "" {
		errs = append(errs, errors.New("output prefix must not be empty"))
	}

	if c.Defaults.Quality < domain.MinQuality || c.Defaults.Quality > domain.MaxQuality {
		errs = append(errs, fmt.Errorf("default quality must be between %d and %d, got %d",
			domain.MinQuality, domain.MaxQuality, c.Defaults.Quality))
	}

	if c.Defaults.TileSize < 1 {
		errs = append(errs, fmt.Errorf("default tile size must be positive, got %d", c.Defaults.TileSize))
	}

	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max concurrent conversions must be positive, got %d", c.MaxConcurrent))
	}

	if c.BatchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("batch concurrency must be positive, got %d", c.BatchConcurrency))
	}

	return errors.Join(errs...)
}
