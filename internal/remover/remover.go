// Package remover separates a photo's subject from its background using an
// external model.
package remover

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmorgan81/wishcard/internal/log"
)

// Remover returns the bytes of a transparent-background image made from the
// given image bytes.
type Remover interface {
	Remove(context.Context, []byte) ([]byte, error)
}

// StatusError is a non-2xx answer from the model server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remover responded %d: %s", e.Code, e.Body)
}

// HTTPRemover talks to a rembg-compatible server, posting the image as the
// multipart field "file".
type HTTPRemover struct {
	Client *http.Client
	URL    string
	Key    string
}

func (r *HTTPRemover) Remove(ctx context.Context, data []byte) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("remover").With("url", r.URL, "size", len(data))
	log.Info("removing background")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "image")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if r.Key != "" {
		req.Header.Set("X-Api-Key", r.Key)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	log.Info("received cutout", "cutout_size", len(out))
	return out, nil
}
