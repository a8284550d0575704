package handler

import (
	"encoding/json"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota
	KindDecode
	KindRemoval
	KindIO
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindRemoval:
		return "removal"
	case KindNotFound:
		return "not_found"
	default:
		return "io"
	}
}

// Status is the HTTP status reported for errors of this kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindDecode:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a request failure. Message is shown to the client; Err is the
// cause, which is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalid(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *Error) {
	writeJSON(w, err.Kind.Status(), map[string]string{"error": err.Message})
}
