package port

import "context"

type ObjectFetcher interface {
	// Fetch downloads the object stored under key into the local file dst and returns the number of
	// bytes written.
	Fetch(ctx context.Context, key, dst string) (int64, error)
}
