package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/dmorgan81/wishcard/internal/store"
	"github.com/gorilla/mux"
	"github.com/samber/do"
)

// CardFileHandler serves archived cards by id, the targets of feed links.
type CardFileHandler struct {
	reader store.Reader
}

func NewCardFileHandler(i *do.Injector) (*CardFileHandler, error) {
	return NewCardFile(do.MustInvoke[store.Reader](i)), nil
}

func NewCardFile(reader store.Reader) *CardFileHandler {
	return &CardFileHandler{reader: reader}
}

func (h *CardFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log := log.FromContextOrDiscard(r.Context()).With("id", id)

	data, err := h.reader.Read(r.Context(), store.CardName(id))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, &Error{Kind: KindNotFound, Message: "Card not found", Err: err})
		return
	}
	if err != nil {
		log.Error("reading card failed", "error", err)
		writeError(w, &Error{Kind: KindIO, Message: "Error reading card", Err: err})
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}
