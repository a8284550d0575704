package remover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmorgan81/wishcard/internal/config"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/samber/do"
)

// Retrying bounds every attempt of the wrapped Remover by Timeout and tries
// again up to Retries times on transient failures.
type Retrying struct {
	Remover Remover
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

func NewRemover(i *do.Injector) (Remover, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &Retrying{
		Remover: &HTTPRemover{
			Client: do.MustInvoke[*http.Client](i),
			URL:    cfg.RemoverURL,
			Key:    do.MustInvokeNamed[string](i, "remover_key"),
		},
		Timeout: cfg.RemoverTimeout,
		Retries: cfg.RemoverRetries,
		Backoff: time.Second,
	}, nil
}

func (r *Retrying) Remove(ctx context.Context, data []byte) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("remover")

	var err error
	for attempt := 1; attempt <= r.Retries+1; attempt++ {
		var out []byte
		out, err = r.attempt(ctx, data)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !transient(err) || attempt > r.Retries {
			return nil, fmt.Errorf("attempt %d: %w", attempt, err)
		}
		log.Warn("background removal failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("attempt %d: %w", attempt, err)
		case <-time.After(r.Backoff):
		}
	}
	return nil, err
}

func (r *Retrying) attempt(ctx context.Context, data []byte) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Remover.Remove(ctx, data)
}

// transient reports whether trying again could help: anything but a client
// error from the model server, rate limiting aside.
func transient(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500 || status.Code == http.StatusTooManyRequests
	}
	return true
}
