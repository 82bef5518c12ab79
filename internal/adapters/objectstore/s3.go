package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/docker/go-units"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

var (
	ErrBucketNotFound = errors.New("bucket does not exist")
	ErrForbidden      = errors.New("bucket access forbidden")
)

// S3Fetcher downloads objects from one bucket of an S3 compatible store.
type S3Fetcher struct {
	client *minio.Client
	bucket string
}

// NewS3Fetcher connects to the store at endpoint (a URL such as https://s3.example.com) and
// verifies that bucket is reachable.
func NewS3Fetcher(ctx context.Context, endpoint, accessKey, secretKey, bucket string) (*S3Fetcher, error) {
	host, secure, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       secure,
		Region:       "us-east-1",
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating object store client %w", err)
	}

	ok, err := client.BucketExists(ctx, bucket)
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == 403 {
			return nil, fmt.Errorf("%w: %s", ErrForbidden, bucket)
		}
		return nil, fmt.Errorf("error checking bucket %s %w", bucket, err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}

	log.Info().Str("bucket", bucket).Str("endpoint", endpoint).Msg("connected to object store")

	return &S3Fetcher{client: client, bucket: bucket}, nil
}

// Fetch streams the object stored under key into dst, creating or truncating it.
func (s *S3Fetcher) Fetch(ctx context.Context, key, dst string) (int64, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("error requesting object %w", err)
	}
	defer obj.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("error creating local copy %w", err)
	}

	n, err := io.Copy(f, obj)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("error downloading object %w", err)
	}

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Str("size", units.HumanSize(float64(n))).
		Msg("fetched object")

	return n, nil
}

// splitEndpoint accepts either a URL or a bare host[:port], which is assumed to speak TLS.
func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid object store endpoint %w", err)
	}

	if u.Host == "" {
		return "", false, fmt.Errorf("invalid object store endpoint %q", endpoint)
	}

	return u.Host, u.Scheme == "https", nil
}
