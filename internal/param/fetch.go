package param

import "context"

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}

// Resolve returns the parameter at path when one is named, otherwise
// fallback.
func Resolve(ctx context.Context, f Fetcher, path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	return f.Fetch(ctx, path)
}
