package handler

import (
	"context"
	"net/http"

	"github.com/dmorgan81/wishcard/internal/config"
	"github.com/dmorgan81/wishcard/internal/feed"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/dmorgan81/wishcard/internal/page"
	"github.com/samber/do"
)

type IndexHandler struct {
	templator *page.Templator
	params    page.Params
}

func NewIndexHandler(i *do.Injector) (*IndexHandler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &IndexHandler{
		templator: do.MustInvoke[*page.Templator](i),
		params: page.Params{
			MaxUploadMB: cfg.MaxUploadBytes >> 20,
			Feed:        cfg.Bucket != "",
		},
	}, nil
}

func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	html, err := h.templator.Template(r.Context(), h.params)
	if err != nil {
		log.FromContextOrDiscard(r.Context()).Error("rendering index failed", "error", err)
		writeError(w, &Error{Kind: KindIO, Message: "Error rendering page", Err: err})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type FeedGenerator interface {
	Generate(ctx context.Context, base string) ([]byte, error)
}

type FeedHandler struct {
	generator FeedGenerator
}

func NewFeedHandler(i *do.Injector) (*FeedHandler, error) {
	return NewFeed(do.MustInvoke[*feed.Generator](i)), nil
}

func NewFeed(generator FeedGenerator) *FeedHandler {
	return &FeedHandler{generator: generator}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rss, err := h.generator.Generate(r.Context(), baseURL(r))
	if err != nil {
		log.FromContextOrDiscard(r.Context()).Error("generating feed failed", "error", err)
		writeError(w, &Error{Kind: KindIO, Message: "Error generating feed", Err: err})
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(rss)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
