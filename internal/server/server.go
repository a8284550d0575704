// Package server routes HTTP requests to the handlers and runs the
// listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmorgan81/wishcard/internal/config"
	"github.com/dmorgan81/wishcard/internal/handler"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/gorilla/mux"
	"github.com/samber/do"
)

const shutdownTimeout = 10 * time.Second

type Routes struct {
	Index   http.Handler
	Process http.Handler
	// Feed and Cards are optional.
	Feed  http.Handler
	Cards http.Handler
}

func NewRouter(i *do.Injector) (http.Handler, error) {
	routes := Routes{
		Index:   do.MustInvoke[*handler.IndexHandler](i),
		Process: do.MustInvoke[*handler.CardHandler](i),
	}
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Bucket != "" {
		routes.Feed = do.MustInvoke[*handler.FeedHandler](i)
	}
	if cfg.Bucket != "" || cfg.ArchiveDir != "" {
		routes.Cards = do.MustInvoke[*handler.CardFileHandler](i)
	}
	return New(do.MustInvoke[*slog.Logger](i), routes), nil
}

func New(logger *slog.Logger, routes Routes) *mux.Router {
	r := mux.NewRouter()
	r.Use(log.Middleware(logger))

	r.Handle("/", routes.Index).Methods(http.MethodGet)
	r.Handle("/process-image", routes.Process).Methods(http.MethodPost)
	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	if routes.Feed != nil {
		r.Handle("/feed.rss", routes.Feed).Methods(http.MethodGet)
	}
	if routes.Cards != nil {
		r.Handle("/cards/{id:[0-9a-fA-F-]+}.jpg", routes.Cards).Methods(http.MethodGet)
	}
	return r
}

// Run serves h on addr until ctx is done, then drains in-flight requests.
func Run(ctx context.Context, addr string, h http.Handler) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("server").With("addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
