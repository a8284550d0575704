package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmorgan81/wishcard/internal/card"
	"github.com/dmorgan81/wishcard/internal/config"
	"github.com/dmorgan81/wishcard/internal/layout"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/dmorgan81/wishcard/internal/remover"
	"github.com/dmorgan81/wishcard/internal/store"
	"github.com/samber/do"
)

const maxMultiplier = 10

type Renderer interface {
	Render(ctx context.Context, original, cutout image.Image, params card.Params) (*image.NRGBA, error)
}

type Archiver interface {
	Archive(context.Context, store.Card) (string, error)
}

// CardHandler serves POST /process-image.
type CardHandler struct {
	renderer  Renderer
	remover   remover.Remover
	archiver  Archiver
	maxUpload int64
}

func NewCardHandler(i *do.Injector) (*CardHandler, error) {
	var archiver Archiver
	if a, err := do.Invoke[*store.Archiver](i); err == nil {
		archiver = a
	}
	return &CardHandler{
		renderer:  do.MustInvoke[*card.Renderer](i),
		remover:   do.MustInvoke[remover.Remover](i),
		archiver:  archiver,
		maxUpload: do.MustInvoke[*config.Config](i).MaxUploadBytes,
	}, nil
}

type request struct {
	image  []byte
	params card.Params
}

func (h *CardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := log.FromContextOrDiscard(ctx).WithGroup("CardHandler")

	req, herr := h.parse(w, r)
	if herr == nil {
		log = log.With("name", req.params.Name, "lines", req.params.Lines.String(), "size", len(req.image))
		log.Info("making card")
	}

	var out []byte
	if herr == nil {
		out, herr = h.make(ctx, req)
	}
	if herr != nil {
		level := log.Info
		if herr.Kind.Status() >= http.StatusInternalServerError {
			level = log.Error
		}
		level("card request failed", "kind", herr.Kind.String(), "error", herr)
		writeError(w, herr)
		return
	}

	if h.archiver != nil {
		if id, err := h.archiver.Archive(ctx, store.Card{
			Name:   req.params.Name,
			Wishes: req.params.Wishes,
			Data:   out,
		}); err != nil {
			log.Error("archiving card failed", "error", err)
		} else {
			log.Info("archived card", "id", id)
		}
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": card.Filename(req.params.Name),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *CardHandler) parse(w http.ResponseWriter, r *http.Request) (request, *Error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return request{}, invalid(fmt.Sprintf("Upload exceeds %d MB", h.maxUpload>>20))
		}
		return request{}, &Error{Kind: KindValidation, Message: "Invalid form data", Err: err}
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return request{}, invalid("No image file provided")
	}
	defer file.Close()

	wishes := r.FormValue("wishes_text")
	if strings.TrimSpace(wishes) == "" {
		return request{}, invalid("No wishes text provided")
	}
	name := r.FormValue("name_text")
	if strings.TrimSpace(name) == "" {
		return request{}, invalid("No name text provided")
	}

	wishesMultiplier, herr := multiplier(r, "wishes_font_size_multiplier")
	if herr != nil {
		return request{}, herr
	}
	nameMultiplier, herr := multiplier(r, "name_font_size_multiplier")
	if herr != nil {
		return request{}, herr
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return request{}, &Error{Kind: KindIO, Message: "Error reading image: " + err.Error(), Err: err}
	}

	return request{
		image: data,
		params: card.Params{
			Wishes:           wishes,
			Name:             name,
			Lines:            layout.ParseLineMode(r.FormValue("text_lines")),
			WishesMultiplier: wishesMultiplier,
			NameMultiplier:   nameMultiplier,
		},
	}, nil
}

func multiplier(r *http.Request, field string) (float64, *Error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 1, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid(fmt.Sprintf("Invalid %s: %q is not a number", field, raw))
	}
	if v > maxMultiplier {
		return 0, invalid(fmt.Sprintf("Invalid %s: must not exceed %d", field, maxMultiplier))
	}
	return v, nil
}

func (h *CardHandler) make(ctx context.Context, req request) ([]byte, *Error) {
	original, err := card.Decode(req.image)
	if errors.Is(err, card.ErrUnrecognized) {
		return nil, &Error{Kind: KindDecode, Message: "Cannot identify image file. Is it a valid image?", Err: err}
	}
	if err != nil {
		return nil, &Error{Kind: KindIO, Message: "Error opening image: " + err.Error(), Err: err}
	}

	cutout, err := h.cutout(ctx, req.image)
	if err != nil {
		return nil, &Error{Kind: KindRemoval, Message: "Background removal failed: " + err.Error(), Err: err}
	}

	img, err := h.renderer.Render(ctx, original, cutout, req.params)
	if err != nil {
		return nil, &Error{Kind: KindIO, Message: "Error rendering card: " + err.Error(), Err: err}
	}

	var buf bytes.Buffer
	if err := card.Encode(&buf, img); err != nil {
		return nil, &Error{Kind: KindIO, Message: "Error encoding card: " + err.Error(), Err: err}
	}
	return buf.Bytes(), nil
}

func (h *CardHandler) cutout(ctx context.Context, data []byte) (image.Image, error) {
	out, err := h.remover.Remove(ctx, data)
	if err != nil {
		return nil, err
	}
	img, err := card.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("cutout: %w", err)
	}
	return img, nil
}
